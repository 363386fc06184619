package valutatrade

import (
	"fmt"
	"iter"
	"maps"
	"regexp"
	"slices"
	"strings"
)

// codeRegex checks for the format: 2 to 5 uppercase letters.
var codeRegex = regexp.MustCompile(`^[A-Z]{2,5}$`)

// NormalizeCode returns the canonical (trimmed, upper case) form of a currency code.
func NormalizeCode(code string) string { return strings.ToUpper(strings.TrimSpace(code)) }

// ValidateCode checks that code is in canonical form: 2 to 5 uppercase letters.
func ValidateCode(code string) error {
	if !codeRegex.MatchString(code) {
		return fmt.Errorf("%w: must be 2 to 5 uppercase letters, got %q", ErrInvalidCurrencyCode, code)
	}
	return nil
}

// Kind discriminates between the currency variants.
type Kind int

const (
	Fiat Kind = iota + 1
	Crypto
)

func (k Kind) String() string {
	switch k {
	case Fiat:
		return "FIAT"
	case Crypto:
		return "CRYPTO"
	default:
		return "UNKNOWN"
	}
}

// FiatInfo holds the attributes specific to fiat currencies.
type FiatInfo struct {
	IssuingCountry string
}

// CryptoInfo holds the attributes specific to crypto currencies.
type CryptoInfo struct {
	Algorithm string
	MarketCap float64
}

// Currency is a tagged variant: exactly one of Fiat or Crypto is set.
type Currency struct {
	Code   string
	Name   string
	Fiat   *FiatInfo
	Crypto *CryptoInfo
}

// Kind returns the currency variant.
func (c Currency) Kind() Kind {
	switch {
	case c.Fiat != nil:
		return Fiat
	case c.Crypto != nil:
		return Crypto
	}
	return 0
}

// DisplayInfo returns a one line human description of the currency.
func (c Currency) DisplayInfo() string {
	switch c.Kind() {
	case Fiat:
		return fmt.Sprintf("[FIAT] %s — %s (Issuing: %s)", c.Code, c.Name, c.Fiat.IssuingCountry)
	case Crypto:
		return fmt.Sprintf("[CRYPTO] %s — %s (Algo: %s, MCAP: %.2e)", c.Code, c.Name, c.Crypto.Algorithm, c.Crypto.MarketCap)
	}
	return c.Code
}

func fiat(code, name, country string) Currency {
	return Currency{Code: code, Name: name, Fiat: &FiatInfo{IssuingCountry: country}}
}

func crypto(code, name, algorithm string, marketCap float64) Currency {
	return Currency{Code: code, Name: name, Crypto: &CryptoInfo{Algorithm: algorithm, MarketCap: marketCap}}
}

// registry is the static list of supported currencies.
var registry = map[string]Currency{
	"USD": fiat("USD", "US Dollar", "United States"),
	"EUR": fiat("EUR", "Euro", "Eurozone"),
	"GBP": fiat("GBP", "British Pound", "United Kingdom"),
	"JPY": fiat("JPY", "Japanese Yen", "Japan"),
	"RUB": fiat("RUB", "Russian Ruble", "Russia"),
	"CNY": fiat("CNY", "Chinese Yuan", "China"),
	"AED": fiat("AED", "UAE Dirham", "United Arab Emirates"),

	"BTC": crypto("BTC", "Bitcoin", "SHA-256", 1.12e12),
	"ETH": crypto("ETH", "Ethereum", "Ethash", 4.5e11),
	"SOL": crypto("SOL", "Solana", "Proof of History", 6.5e10),
}

// LookupCurrency returns the registered currency for code. The code is
// normalized first, so "btc" finds "BTC".
func LookupCurrency(code string) (Currency, error) {
	code = NormalizeCode(code)
	c, ok := registry[code]
	if !ok {
		return Currency{}, &CurrencyNotFoundError{Code: code}
	}
	return c, nil
}

// IsKnown returns true if code is in the registry.
func IsKnown(code string) bool {
	_, err := LookupCurrency(code)
	return err == nil
}

// Currencies iterates over all registered currencies in code order.
func Currencies() iter.Seq[Currency] {
	codes := slices.Sorted(maps.Keys(registry))
	return func(yield func(Currency) bool) {
		for _, code := range codes {
			if !yield(registry[code]) {
				return
			}
		}
	}
}

// CurrencyCodes returns the sorted list of registered codes.
func CurrencyCodes() []string { return slices.Sorted(maps.Keys(registry)) }
