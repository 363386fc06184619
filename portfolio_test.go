package valutatrade

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/shopspring/decimal"
)

func TestWallet_Withdraw(t *testing.T) {
	testCases := []struct {
		name        string
		balance     decimal.Decimal
		amount      decimal.Decimal
		wantBalance decimal.Decimal
		wantErr     error
	}{
		{
			name:        "partial",
			balance:     D(100),
			amount:      D(30.5),
			wantBalance: D(69.5),
		},
		{
			name:        "everything",
			balance:     D(100),
			amount:      D(100),
			wantBalance: D(0),
		},
		{
			name:        "too much",
			balance:     D(100),
			amount:      D(100.01),
			wantBalance: D(100),
			wantErr:     ErrInsufficientFunds,
		},
		{
			name:        "zero",
			balance:     D(100),
			amount:      D(0),
			wantBalance: D(100),
			wantErr:     ErrInvalidAmount,
		},
		{
			name:        "negative",
			balance:     D(100),
			amount:      D(-1),
			wantBalance: D(100),
			wantErr:     ErrInvalidAmount,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w, err := NewWallet("usd", tc.balance)
			if err != nil {
				t.Fatalf("NewWallet() unexpected error: %v", err)
			}
			err = w.Withdraw(tc.amount)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("Withdraw(%s) error = %v, want %v", tc.amount, err, tc.wantErr)
			}
			if !w.Balance().Equal(tc.wantBalance) {
				t.Errorf("Withdraw(%s) balance = %s, want %s", tc.amount, w.Balance(), tc.wantBalance)
			}
		})
	}
}

func TestWallet_Deposit(t *testing.T) {
	w, _ := NewWallet("EUR", decimal.Zero)
	if err := w.Deposit(D(10)); err != nil {
		t.Fatalf("Deposit(10) unexpected error: %v", err)
	}
	if err := w.Deposit(D(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Deposit(0) error = %v, want %v", err, ErrInvalidAmount)
	}
	if got, want := w.Balance(), D(10); !got.Equal(want) {
		t.Errorf("Balance() = %s, want %s", got, want)
	}
}

func TestNewWallet_Invalid(t *testing.T) {
	if _, err := NewWallet("A", decimal.Zero); !errors.Is(err, ErrInvalidCurrencyCode) {
		t.Errorf("NewWallet(\"A\") error = %v, want %v", err, ErrInvalidCurrencyCode)
	}
	if _, err := NewWallet("USD", D(-1)); err == nil {
		t.Error("NewWallet(USD, -1) expected an error, got nil")
	}
}

func TestPortfolio_Wallets(t *testing.T) {
	p := NewPortfolio(1)
	if _, err := p.AddCurrency("usd"); err != nil {
		t.Fatalf("AddCurrency(usd) unexpected error: %v", err)
	}
	if _, err := p.AddCurrency("USD"); !errors.Is(err, ErrWalletAlreadyExists) {
		t.Errorf("AddCurrency(USD) error = %v, want %v", err, ErrWalletAlreadyExists)
	}
	if _, err := p.Wallet("BTC"); !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("Wallet(BTC) error = %v, want %v", err, ErrWalletNotFound)
	}
	if err := p.Deposit("btc", D(0.5)); err != nil {
		t.Fatalf("Deposit(btc) unexpected error: %v", err)
	}
	if err := p.Deposit("eth", D(0)); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("Deposit(eth, 0) error = %v, want %v", err, ErrInvalidAmount)
	}

	var codes []string
	for w := range p.Wallets() {
		codes = append(codes, w.Code())
	}
	if diff := cmp.Diff([]string{"BTC", "USD"}, codes); diff != "" {
		t.Errorf("Wallets() mismatch (-want +got):\n%s", diff)
	}
}

func TestPortfolio_WithdrawMissingWallet(t *testing.T) {
	p := NewPortfolio(1)
	err := p.Withdraw("EUR", D(5))

	var ife *InsufficientFundsError
	if !errors.As(err, &ife) {
		t.Fatalf("Withdraw(EUR) error = %v, want *InsufficientFundsError", err)
	}
	if !ife.Available.IsZero() || !ife.Required.Equal(D(5)) || ife.Code != "EUR" {
		t.Errorf("Withdraw(EUR) error = %+v, want available 0, required 5 EUR", ife)
	}
	if !errors.Is(err, ErrWalletNotFound) {
		t.Errorf("Withdraw(EUR) error should also match %v", ErrWalletNotFound)
	}
	if p.Len() != 0 {
		t.Errorf("Withdraw(EUR) created a wallet, got %d wallets", p.Len())
	}
}

func TestPortfolio_Clone(t *testing.T) {
	p := NewPortfolio(7)
	p.Deposit("USD", D(100))
	c := p.Clone()
	c.Withdraw("USD", D(40))
	c.Deposit("BTC", D(1))

	if got := p.Balance("USD"); !got.Equal(D(100)) {
		t.Errorf("original USD balance = %s, want 100", got)
	}
	if p.Len() != 1 {
		t.Errorf("original has %d wallets, want 1", p.Len())
	}
	if got := c.Balance("USD"); !got.Equal(D(60)) {
		t.Errorf("clone USD balance = %s, want 60", got)
	}
}

func TestPortfolio_JSON(t *testing.T) {
	p := NewPortfolio(3)
	p.Deposit("USD", D(500))
	p.Deposit("BTC", D(0.01))

	data, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal() unexpected error: %v", err)
	}
	want := `{"user_id":3,"wallets":{"BTC":{"currency_code":"BTC","balance":0.01},"USD":{"currency_code":"USD","balance":500}}}`
	if string(data) != want {
		t.Errorf("Marshal() = %s, want %s", data, want)
	}

	got := new(Portfolio)
	if err := json.Unmarshal(data, got); err != nil {
		t.Fatalf("Unmarshal() unexpected error: %v", err)
	}
	if got.UserID() != 3 || !got.Balance("BTC").Equal(D(0.01)) || !got.Balance("USD").Equal(D(500)) {
		t.Errorf("Unmarshal() = %s, want %s", mustJSON(t, got), want)
	}

	bad := `{"user_id":3,"wallets":{"USD":{"currency_code":"EUR","balance":1}}}`
	if err := json.Unmarshal([]byte(bad), new(Portfolio)); err == nil {
		t.Error("Unmarshal() with mismatched key expected an error, got nil")
	}
}

func TestParseAmount(t *testing.T) {
	testCases := []struct {
		in      string
		want    decimal.Decimal
		wantErr bool
	}{
		{in: "1", want: D(1)},
		{in: " 0.01 ", want: D(0.01)},
		{in: "2,5", want: D(2.5)},
		{in: "0", wantErr: true},
		{in: "-3", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseAmount(tc.in)
			if tc.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Errorf("ParseAmount(%q) error = %v, want %v", tc.in, err, ErrInvalidAmount)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tc.in, err)
			}
			if !got.Equal(tc.want) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
			}
		})
	}
}

func TestUser_Password(t *testing.T) {
	u, err := NewUser(1, " alice ", "secret", time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	if err != nil {
		t.Fatalf("NewUser() unexpected error: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("Username = %q, want %q", u.Username, "alice")
	}
	if u.HashedPassword == "secret" {
		t.Error("password stored in clear")
	}
	if !u.VerifyPassword("secret") {
		t.Error("VerifyPassword(secret) = false, want true")
	}
	if u.VerifyPassword("Secret") {
		t.Error("VerifyPassword(Secret) = true, want false")
	}

	oldSalt, oldHash := u.Salt, u.HashedPassword
	if err := u.ChangePassword("secret"); err != nil {
		t.Fatalf("ChangePassword() unexpected error: %v", err)
	}
	if u.Salt == oldSalt || u.HashedPassword == oldHash {
		t.Error("ChangePassword() did not rotate salt and hash")
	}
	if !u.VerifyPassword("secret") {
		t.Error("VerifyPassword(secret) after rotation = false, want true")
	}
	if err := u.ChangePassword(""); !errors.Is(err, ErrInvalidPassword) {
		t.Errorf("ChangePassword(\"\") error = %v, want %v", err, ErrInvalidPassword)
	}
}

func TestSaveJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "data.json")

	var missing map[string]int
	found, err := LoadJSON(path, &missing)
	if err != nil || found {
		t.Fatalf("LoadJSON(missing) = %v, %v, want false, nil", found, err)
	}

	want := map[string]int{"a": 1, "b": 2}
	if err := SaveJSON(path, want); err != nil {
		t.Fatalf("SaveJSON() unexpected error: %v", err)
	}
	if err := SaveJSON(path, map[string]int{"a": 1, "b": 2}); err != nil {
		t.Fatalf("SaveJSON() overwrite unexpected error: %v", err)
	}

	var got map[string]int
	found, err = LoadJSON(path, &got)
	if err != nil || !found {
		t.Fatalf("LoadJSON() = %v, %v, want true, nil", found, err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("LoadJSON() mismatch (-want +got):\n%s", diff)
	}

	entries, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(entries) != 0 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestLoadJSON_Corrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.json")
	if err := SaveJSON(path, "ok"); err != nil {
		t.Fatal(err)
	}
	var v map[string]int
	if _, err := LoadJSON(path, &v); !errors.Is(err, ErrPersistence) {
		t.Errorf("LoadJSON() error = %v, want %v", err, ErrPersistence)
	}
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	return string(data)
}
