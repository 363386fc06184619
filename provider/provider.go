package provider

import (
	"fmt"
	"slices"
	"strings"

	"github.com/etnz/valutatrade/config"
	"github.com/etnz/valutatrade/rates"
	"go.uber.org/zap"
)

// Names lists the known source names.
var Names = []string{"coingecko", "exchangerate", "lstc", "stub"}

// NewClientFromConfig returns a client using the network settings of cfg.
func NewClientFromConfig(cfg *config.Config, log *zap.Logger) *Client {
	return NewClient(Options{
		Timeout:           cfg.RequestTimeout,
		Attempts:          cfg.RetryAttempts,
		Delay:             cfg.RetryDelay,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Log:               log,
	})
}

// New returns the source called name.
func New(name string, cfg *config.Config, client *Client) (rates.Source, error) {
	switch strings.ToLower(name) {
	case "coingecko":
		return NewCoinGecko(client, cfg.CoinGeckoURL, cfg.CryptoCurrencies), nil
	case "exchangerate":
		return NewExchangeRate(client, cfg.ExchangeRateURL, cfg.ExchangeRateAPIKey, cfg.FiatCurrencies), nil
	case "lstc":
		return NewLSTC(client, cfg.LSTCURL), nil
	case "stub":
		return Stub{}, nil
	}
	return nil, fmt.Errorf("unknown rate source %q, available: %s", name, strings.Join(Names, ", "))
}

// FromConfig returns the sources called names, in order, or the configured
// sources if names is empty. Duplicates are ignored.
func FromConfig(cfg *config.Config, client *Client, names ...string) ([]rates.Source, error) {
	if len(names) == 0 {
		names = cfg.Sources
	}
	var (
		sources []rates.Source
		seen    []string
	)
	for _, name := range names {
		name = strings.ToLower(name)
		if slices.Contains(seen, name) {
			continue
		}
		seen = append(seen, name)
		s, err := New(name, cfg, client)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}
	return sources, nil
}
