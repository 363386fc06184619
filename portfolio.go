package valutatrade

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/shopspring/decimal"
)

// Portfolio holds the wallets of a user, at most one per currency code.
type Portfolio struct {
	userID  int
	wallets map[string]*Wallet
}

// NewPortfolio returns an empty portfolio.
func NewPortfolio(userID int) *Portfolio {
	return &Portfolio{userID: userID, wallets: make(map[string]*Wallet)}
}

func (p *Portfolio) UserID() int { return p.userID }

// Len returns the number of wallets.
func (p *Portfolio) Len() int { return len(p.wallets) }

// Wallets iterates over the wallets in currency code order.
func (p *Portfolio) Wallets() iter.Seq[*Wallet] {
	codes := slices.Sorted(maps.Keys(p.wallets))
	return func(yield func(*Wallet) bool) {
		for _, code := range codes {
			if !yield(p.wallets[code]) {
				return
			}
		}
	}
}

// Wallet returns the wallet for code.
func (p *Portfolio) Wallet(code string) (*Wallet, error) {
	code = NormalizeCode(code)
	w, ok := p.wallets[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrWalletNotFound, code)
	}
	return w, nil
}

// Balance returns the balance for code, zero if there is no such wallet.
func (p *Portfolio) Balance(code string) decimal.Decimal {
	if w, ok := p.wallets[NormalizeCode(code)]; ok {
		return w.balance
	}
	return decimal.Zero
}

// AddCurrency creates an empty wallet for code.
func (p *Portfolio) AddCurrency(code string) (*Wallet, error) {
	code = NormalizeCode(code)
	if _, exists := p.wallets[code]; exists {
		return nil, fmt.Errorf("%w: %s", ErrWalletAlreadyExists, code)
	}
	w, err := NewWallet(code, decimal.Zero)
	if err != nil {
		return nil, err
	}
	p.wallets[code] = w
	return w, nil
}

// Ensure returns the wallet for code, creating an empty one if needed.
func (p *Portfolio) Ensure(code string) (*Wallet, error) {
	if w, ok := p.wallets[NormalizeCode(code)]; ok {
		return w, nil
	}
	return p.AddCurrency(code)
}

// Deposit credits amount on the wallet for code, creating it if needed.
// No wallet is created when amount is invalid.
func (p *Portfolio) Deposit(code string, amount decimal.Decimal) error {
	if err := checkPositive(amount); err != nil {
		return err
	}
	w, err := p.Ensure(code)
	if err != nil {
		return err
	}
	return w.Deposit(amount)
}

// Withdraw debits amount from the wallet for code.
//
// A missing wallet is treated as an empty one: the debit fails with an
// InsufficientFundsError and no wallet is created.
func (p *Portfolio) Withdraw(code string, amount decimal.Decimal) error {
	if err := checkPositive(amount); err != nil {
		return err
	}
	code = NormalizeCode(code)
	w, ok := p.wallets[code]
	if !ok {
		return &InsufficientFundsError{Available: decimal.Zero, Required: amount, Code: code, Missing: true}
	}
	return w.Withdraw(amount)
}

// Clone returns a deep copy of the portfolio.
func (p *Portfolio) Clone() *Portfolio {
	c := NewPortfolio(p.userID)
	for code, w := range p.wallets {
		c.wallets[code] = &Wallet{code: w.code, balance: w.balance}
	}
	return c
}

// jportfolio is the persisted form of a Portfolio.
type jportfolio struct {
	UserID  int                `json:"user_id"`
	Wallets map[string]*Wallet `json:"wallets"`
}

func (p *Portfolio) MarshalJSON() ([]byte, error) {
	return json.Marshal(jportfolio{UserID: p.userID, Wallets: p.wallets})
}

func (p *Portfolio) UnmarshalJSON(data []byte) error {
	var jp jportfolio
	if err := json.Unmarshal(data, &jp); err != nil {
		return err
	}
	np := NewPortfolio(jp.UserID)
	for code, w := range jp.Wallets {
		if w == nil {
			return fmt.Errorf("portfolio %d: wallet %q is null", jp.UserID, code)
		}
		if NormalizeCode(code) != w.code {
			return fmt.Errorf("portfolio %d: wallet key %q does not match its currency code %q", jp.UserID, code, w.code)
		}
		np.wallets[w.code] = w
	}
	*p = *np
	return nil
}
