package valutatrade

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errors reported by the simulator.
//
// Structured errors below match these sentinels through errors.Is, so callers
// only ever need to test against the sentinel.
var (
	ErrInvalidAmount         = errors.New("amount must be a positive number")
	ErrCurrencyNotFound      = errors.New("unknown currency")
	ErrWalletNotFound        = errors.New("wallet not found")
	ErrWalletAlreadyExists   = errors.New("wallet already exists")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrRateUnavailable       = errors.New("rate unavailable")
	ErrAllSourcesUnavailable = errors.New("all rate sources are unavailable")
	ErrNotLoggedIn           = errors.New("not logged in")
	ErrUsernameTaken         = errors.New("username already taken")
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidPassword       = errors.New("invalid password")
	ErrPersistence           = errors.New("persistence error")
	ErrSameCurrency          = errors.New("currencies must differ")
	ErrInvalidCurrencyCode   = errors.New("invalid currency code")
)

// InsufficientFundsError reports a debit larger than the available balance.
//
// A debit on a wallet that does not exist reports an Available of zero and
// Missing set to true, it then also matches ErrWalletNotFound.
type InsufficientFundsError struct {
	Available decimal.Decimal
	Required  decimal.Decimal
	Code      string
	Missing   bool
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s %s, required %s %s",
		e.Available.StringFixed(4), e.Code, e.Required.StringFixed(4), e.Code)
}

func (e *InsufficientFundsError) Is(target error) bool {
	return target == ErrInsufficientFunds || (e.Missing && target == ErrWalletNotFound)
}

// RateUnavailableError reports that no fresh or fetchable rate exists for a pair.
type RateUnavailableError struct {
	From, To string
	Err      error // underlying cause, can be nil
}

func (e *RateUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rate %s→%s unavailable: %v", e.From, e.To, e.Err)
	}
	return fmt.Sprintf("rate %s→%s unavailable", e.From, e.To)
}

func (e *RateUnavailableError) Is(target error) bool { return target == ErrRateUnavailable }
func (e *RateUnavailableError) Unwrap() error        { return e.Err }

// CurrencyNotFoundError reports a code missing from the currency registry.
type CurrencyNotFoundError struct {
	Code string
}

func (e *CurrencyNotFoundError) Error() string {
	return fmt.Sprintf("unknown currency %q", e.Code)
}

func (e *CurrencyNotFoundError) Is(target error) bool { return target == ErrCurrencyNotFound }
