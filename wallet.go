package valutatrade

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Wallet holds the balance of a single currency. The balance is never negative.
type Wallet struct {
	code    string
	balance decimal.Decimal
}

// NewWallet returns a wallet for code holding balance.
func NewWallet(code string, balance decimal.Decimal) (*Wallet, error) {
	code = NormalizeCode(code)
	if err := ValidateCode(code); err != nil {
		return nil, err
	}
	if balance.IsNegative() {
		return nil, fmt.Errorf("wallet %s: negative balance %s", code, balance)
	}
	return &Wallet{code: code, balance: balance}, nil
}

func (w *Wallet) Code() string             { return w.code }
func (w *Wallet) Balance() decimal.Decimal { return w.balance }

// Deposit adds amount to the balance.
func (w *Wallet) Deposit(amount decimal.Decimal) error {
	if err := checkPositive(amount); err != nil {
		return err
	}
	w.balance = w.balance.Add(amount)
	return nil
}

// Withdraw removes amount from the balance. The balance is left unchanged on error.
func (w *Wallet) Withdraw(amount decimal.Decimal) error {
	if err := checkPositive(amount); err != nil {
		return err
	}
	if w.balance.LessThan(amount) {
		return &InsufficientFundsError{Available: w.balance, Required: amount, Code: w.code}
	}
	w.balance = w.balance.Sub(amount)
	return nil
}

// jwallet is the persisted form of a Wallet.
type jwallet struct {
	CurrencyCode string          `json:"currency_code"`
	Balance      decimal.Decimal `json:"balance"`
}

func (w *Wallet) MarshalJSON() ([]byte, error) {
	// balances are written as plain JSON numbers.
	return json.Marshal(struct {
		CurrencyCode string      `json:"currency_code"`
		Balance      json.Number `json:"balance"`
	}{w.code, json.Number(w.balance.String())})
}

func (w *Wallet) UnmarshalJSON(data []byte) error {
	var jw jwallet
	if err := json.Unmarshal(data, &jw); err != nil {
		return err
	}
	nw, err := NewWallet(jw.CurrencyCode, jw.Balance)
	if err != nil {
		return err
	}
	*w = *nw
	return nil
}
