// Package config loads the vth configuration.
//
// Values come, by increasing priority, from built-in defaults, an optional
// configuration file (JSON, TOML or YAML), a .env file and VTH_ prefixed
// environment variables (VTH_RATES_TTL=10m).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "VTH"

// Config holds the application configuration.
type Config struct {
	DataDir            string        `mapstructure:"data_dir" validate:"required"`
	RatesTTL           time.Duration `mapstructure:"rates_ttl" validate:"gt=0"`
	SettlementCurrency string        `mapstructure:"settlement_currency" validate:"required,uppercase,min=2,max=5"`
	BaseCurrency       string        `mapstructure:"base_currency" validate:"required,uppercase,min=2,max=5"`
	HistoryMaxEntries  int           `mapstructure:"history_max_entries" validate:"gt=0"`

	RequestTimeout    time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	RetryAttempts     int           `mapstructure:"retry_attempts" validate:"gte=1,lte=10"`
	RetryDelay        time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" validate:"gte=0"`

	Sources            []string `mapstructure:"sources" validate:"dive,oneof=coingecko exchangerate lstc stub"`
	ExchangeRateAPIKey string   `mapstructure:"exchangerate_api_key"`
	ExchangeRateURL    string   `mapstructure:"exchangerate_url" validate:"omitempty,url"`
	CoinGeckoURL       string   `mapstructure:"coingecko_url" validate:"omitempty,url"`
	LSTCURL            string   `mapstructure:"lstc_url" validate:"omitempty,url"`
	FiatCurrencies     []string `mapstructure:"fiat_currencies" validate:"dive,uppercase,min=2,max=5"`
	CryptoCurrencies   []string `mapstructure:"crypto_currencies" validate:"dive,uppercase,min=2,max=5"`

	PasswordMinLength int           `mapstructure:"password_min_length" validate:"gte=1"`
	LogLevel          string        `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	LogFile           string        `mapstructure:"log_file"`
	ScheduleEvery     time.Duration `mapstructure:"schedule_every" validate:"gte=1s"`
}

// Files of the data directory.
func (c *Config) RatesFile() string      { return filepath.Join(c.DataDir, "rates.json") }
func (c *Config) HistoryFile() string    { return filepath.Join(c.DataDir, "exchange_rates.json") }
func (c *Config) UsersFile() string      { return filepath.Join(c.DataDir, "users.json") }
func (c *Config) PortfoliosFile() string { return filepath.Join(c.DataDir, "portfolios.json") }
func (c *Config) SessionFile() string    { return filepath.Join(c.DataDir, "session.json") }

// setDefaults registers every key, so that environment variables are seen
// for all of them.
func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("rates_ttl", "5m")
	v.SetDefault("settlement_currency", "USD")
	v.SetDefault("base_currency", "USD")
	v.SetDefault("history_max_entries", 1000)
	v.SetDefault("request_timeout", "10s")
	v.SetDefault("retry_attempts", 3)
	v.SetDefault("retry_delay", "1s")
	v.SetDefault("requests_per_second", 1.0)
	v.SetDefault("sources", []string{"coingecko", "exchangerate"})
	v.SetDefault("exchangerate_api_key", "")
	v.SetDefault("exchangerate_url", "https://v6.exchangerate-api.com/v6")
	v.SetDefault("coingecko_url", "https://api.coingecko.com/api/v3/simple/price")
	v.SetDefault("lstc_url", "https://www.ls-tc.de/_rpc/json/instrument/chart/dataForInstrument?instrumentId=349938&series=intraday&type=mini")
	v.SetDefault("fiat_currencies", []string{"EUR", "GBP", "JPY", "RUB", "CNY", "AED"})
	v.SetDefault("crypto_currencies", []string{"BTC", "ETH", "SOL"})
	v.SetDefault("password_min_length", 4)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_file", "")
	v.SetDefault("schedule_every", "5m")
}

// defaultDataDir is $XDG_DATA_HOME/vth or equivalent, ./data as a fallback.
func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "vth")
	}
	return "data"
}

// Load reads the configuration. An empty path skips the configuration file.
//
// A .env file in the working directory is loaded if present, without
// overriding variables already set in the environment.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("could not read config file %q: %w", path, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("could not decode configuration: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.ExchangeRateAPIKey == "" && cfg.HasSource("exchangerate") {
		log.Printf("Warning: %s_EXCHANGERATE_API_KEY is not set, the exchangerate source will fail.", EnvPrefix)
	}
	return cfg, nil
}

// Default returns the default configuration with data stored in dataDir.
func Default(dataDir string) *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("data_dir", dataDir)
	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		panic(err) // defaults are static
	}
	cfg.normalize()
	return cfg
}

func (c *Config) normalize() {
	c.SettlementCurrency = strings.ToUpper(strings.TrimSpace(c.SettlementCurrency))
	c.BaseCurrency = strings.ToUpper(strings.TrimSpace(c.BaseCurrency))
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	for i, s := range c.Sources {
		c.Sources[i] = strings.ToLower(strings.TrimSpace(s))
	}
	for i, s := range c.FiatCurrencies {
		c.FiatCurrencies[i] = strings.ToUpper(strings.TrimSpace(s))
	}
	for i, s := range c.CryptoCurrencies {
		c.CryptoCurrencies[i] = strings.ToUpper(strings.TrimSpace(s))
	}
}

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed %q (%v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// HasSource returns true if name is one of the configured sources.
func (c *Config) HasSource(name string) bool {
	for _, s := range c.Sources {
		if s == name {
			return true
		}
	}
	return false
}
