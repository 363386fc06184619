package provider

import (
	"context"
	"maps"
)

// stubRates is a fixed table of plausible rates.
var stubRates = map[string]float64{
	"USD_EUR": 0.93,
	"USD_GBP": 0.78,
	"USD_JPY": 149.5,
	"USD_RUB": 90.0,
	"USD_CNY": 7.3,
	"USD_AED": 3.6725,
	"BTC_USD": 60000.0,
	"ETH_USD": 3000.0,
	"SOL_USD": 150.0,
}

// Stub is an offline source returning a fixed table, for demos and tests.
type Stub struct{}

func (Stub) Name() string { return "stub" }

func (Stub) Fetch(ctx context.Context) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return maps.Clone(stubRates), nil
}
