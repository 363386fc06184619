package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultExchangeRateURL is the ExchangeRate-API v6 endpoint.
const DefaultExchangeRateURL = "https://v6.exchangerate-api.com/v6"

// ExchangeRate reads fiat rates from ExchangeRate-API, with USD as base.
//
//	GET {url}/{key}/latest/USD
//	{"result": "success", "base_code": "USD", "conversion_rates": {"EUR": 0.9229, ...}}
//
// A conversion rate of 0.9229 for EUR means 1 USD is worth 0.9229 EUR, so it
// is returned as USD_EUR.
type ExchangeRate struct {
	client *Client
	url    string
	key    string
	codes  []string
}

// NewExchangeRate returns a source for the given fiat codes.
// An empty url selects DefaultExchangeRateURL.
func NewExchangeRate(client *Client, url, key string, codes []string) *ExchangeRate {
	if url == "" {
		url = DefaultExchangeRateURL
	}
	s := &ExchangeRate{client: client, url: strings.TrimSuffix(url, "/"), key: key}
	for _, code := range codes {
		code = strings.ToUpper(code)
		if code != "USD" {
			s.codes = append(s.codes, code)
		}
	}
	return s
}

func (s *ExchangeRate) Name() string { return "exchangerate" }

func (s *ExchangeRate) Fetch(ctx context.Context) (map[string]float64, error) {
	if s.key == "" {
		return nil, errors.New("exchangerate api key is not configured")
	}
	body, err := s.client.getBytes(ctx, s.url+"/"+s.key+"/latest/USD", nil)
	if err != nil {
		// the key is part of the url, never report it.
		return nil, errors.New(strings.ReplaceAll(err.Error(), s.key, "***"))
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("invalid JSON from exchangerate")
	}
	res := gjson.ParseBytes(body)
	if r := res.Get("result").String(); r != "success" {
		return nil, fmt.Errorf("exchangerate: result %q: %s", r, res.Get("error-type").String())
	}
	conv := res.Get("conversion_rates")
	if !conv.IsObject() {
		return nil, errors.New("exchangerate: missing conversion_rates")
	}

	rates := make(map[string]float64)
	for _, code := range s.codes {
		v := conv.Get(code)
		if !v.Exists() || v.Float() <= 0 {
			s.client.log.Warn("missing exchangerate rate", zap.String("currency", code))
			continue
		}
		rates["USD_"+code] = v.Float()
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("exchangerate: no rate for %s", strings.Join(s.codes, ","))
	}
	return rates, nil
}
