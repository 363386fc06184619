package trade

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/valutatrade"
	"github.com/etnz/valutatrade/account"
	"github.com/etnz/valutatrade/rates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// mockRater is a testify mock of Rater.
type mockRater struct {
	mock.Mock
}

func (m *mockRater) Rate(ctx context.Context, from, to string) (rates.Quote, error) {
	args := m.Called(from, to)
	return args.Get(0).(rates.Quote), args.Error(1)
}

func quote(from, to string, rate float64) rates.Quote {
	return rates.Quote{Pair: valutatrade.Pair{From: from, To: to}, Rate: rate, Source: "test", Method: rates.Direct}
}

var alice = valutatrade.Session{UserID: 1, Username: "alice"}

func setup(t *testing.T, r Rater, balances map[string]float64) (*Engine, *account.Portfolios) {
	t.Helper()
	store := account.NewPortfolios(filepath.Join(t.TempDir(), "portfolios.json"))
	p := valutatrade.NewPortfolio(alice.UserID)
	for code, b := range balances {
		require.NoError(t, p.Deposit(code, valutatrade.D(b)))
	}
	require.NoError(t, store.Save(p))
	return NewEngine(r, store, "usd", nil), store
}

func balances(t *testing.T, store *account.Portfolios) map[string]string {
	t.Helper()
	p, err := store.Load(alice.UserID)
	require.NoError(t, err)
	m := make(map[string]string)
	for w := range p.Wallets() {
		m[w.Code()] = w.Balance().String()
	}
	return m
}

func TestEngine_BuyBTC(t *testing.T) {
	r := new(mockRater)
	r.On("Rate", "BTC", "USD").Return(quote("BTC", "USD", 50000), nil)
	e, store := setup(t, r, map[string]float64{"USD": 1000})

	rcpt, err := e.Buy(context.Background(), alice, "btc", valutatrade.D(0.01))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BTC": "0.01", "USD": "500"}, balances(t, store))
	assert.Equal(t, Buy, rcpt.Action)
	assert.Equal(t, "BTC", rcpt.Currency)
	assert.Equal(t, "USD", rcpt.Settlement)
	assert.Equal(t, 50000.0, rcpt.Rate)
	assert.Equal(t, "500", rcpt.Cost.String())
	require.Len(t, rcpt.Changes, 2)
	assert.Equal(t, "0", rcpt.Changes[0].Before.String())
	assert.Equal(t, "0.01", rcpt.Changes[0].After.String())
	assert.Equal(t, "1000", rcpt.Changes[1].Before.String())
	assert.Equal(t, "500", rcpt.Changes[1].After.String())
	assert.NotEmpty(t, rcpt.ID)
	r.AssertExpectations(t)
}

func TestEngine_RoundTrip(t *testing.T) {
	testCases := []struct {
		code   string
		rate   float64
		amount float64
	}{
		{"BTC", 50000, 0.01},
		{"EUR", 1.0786, 123.45},
		{"JPY", 0.0066889, 10000},
		{"ETH", 3720.51, 0.3},
	}
	for _, tc := range testCases {
		t.Run(tc.code, func(t *testing.T) {
			r := new(mockRater)
			r.On("Rate", tc.code, "USD").Return(quote(tc.code, "USD", tc.rate), nil)
			e, store := setup(t, r, map[string]float64{"USD": 10000})

			_, err := e.Buy(context.Background(), alice, tc.code, valutatrade.D(tc.amount))
			require.NoError(t, err)
			_, err = e.Sell(context.Background(), alice, tc.code, valutatrade.D(tc.amount))
			require.NoError(t, err)

			got := balances(t, store)
			assert.Equal(t, "10000", got["USD"])
			assert.Equal(t, "0", got[tc.code])
		})
	}
}

func TestEngine_Failures(t *testing.T) {
	testCases := []struct {
		name      string
		action    Action
		sess      valutatrade.Session
		code      string
		amount    float64
		rateErr   error
		wantErr   error
		wantStage Stage
	}{
		{name: "zero amount", action: Buy, sess: alice, code: "BTC", amount: 0, wantErr: valutatrade.ErrInvalidAmount, wantStage: StageValidate},
		{name: "negative amount", action: Sell, sess: alice, code: "BTC", amount: -1, wantErr: valutatrade.ErrInvalidAmount, wantStage: StageValidate},
		{name: "unknown currency", action: Buy, sess: alice, code: "XYZ", amount: 1, wantErr: valutatrade.ErrCurrencyNotFound, wantStage: StageValidate},
		{name: "not logged in", action: Buy, code: "BTC", amount: 1, wantErr: valutatrade.ErrNotLoggedIn, wantStage: StageValidate},
		{name: "settlement itself", action: Buy, sess: alice, code: "USD", amount: 1, wantErr: valutatrade.ErrSameCurrency, wantStage: StageValidate},
		{name: "no rate", action: Buy, sess: alice, code: "BTC", amount: 1, rateErr: &valutatrade.RateUnavailableError{From: "BTC", To: "USD"}, wantErr: valutatrade.ErrRateUnavailable, wantStage: StagePrice},
		{name: "buy too much", action: Buy, sess: alice, code: "BTC", amount: 0.03, wantErr: valutatrade.ErrInsufficientFunds, wantStage: StageDebit},
		{name: "sell more than held", action: Sell, sess: alice, code: "BTC", amount: 0.5, wantErr: valutatrade.ErrInsufficientFunds, wantStage: StageDebit},
		{name: "sell without wallet", action: Sell, sess: alice, code: "EUR", amount: 10, wantErr: valutatrade.ErrWalletNotFound, wantStage: StageDebit},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r := new(mockRater)
			r.On("Rate", mock.Anything, "USD").Return(quote("BTC", "USD", 50000), tc.rateErr)
			e, store := setup(t, r, map[string]float64{"USD": 1000, "BTC": 0.1})
			before := balances(t, store)

			var err error
			if tc.action == Buy {
				_, err = e.Buy(context.Background(), tc.sess, tc.code, valutatrade.D(tc.amount))
			} else {
				_, err = e.Sell(context.Background(), tc.sess, tc.code, valutatrade.D(tc.amount))
			}
			require.ErrorIs(t, err, tc.wantErr)
			var se *StageError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tc.wantStage, se.Stage)
			assert.Equal(t, before, balances(t, store), "a failed operation must not change the portfolio")
		})
	}
}

func TestEngine_SellEURWithoutWallet(t *testing.T) {
	r := new(mockRater)
	r.On("Rate", "EUR", "USD").Return(quote("EUR", "USD", 1.08), nil)
	e, store := setup(t, r, map[string]float64{"USD": 1000})

	_, err := e.Sell(context.Background(), alice, "EUR", valutatrade.D(10))
	assert.ErrorIs(t, err, valutatrade.ErrInsufficientFunds)
	assert.ErrorIs(t, err, valutatrade.ErrWalletNotFound)
	var ife *valutatrade.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.True(t, ife.Available.IsZero())
	assert.Equal(t, "EUR", ife.Code)
	assert.NotContains(t, balances(t, store), "EUR")
}

// failingStore fails every save.
type failingStore struct {
	*account.Portfolios
}

func (failingStore) Save(*valutatrade.Portfolio) error { return valutatrade.ErrPersistence }

func TestEngine_PersistFailure(t *testing.T) {
	r := new(mockRater)
	r.On("Rate", "BTC", "USD").Return(quote("BTC", "USD", 50000), nil)
	_, store := setup(t, r, map[string]float64{"USD": 1000})
	e := NewEngine(r, failingStore{store}, "USD", nil)

	_, err := e.Buy(context.Background(), alice, "BTC", valutatrade.D(0.01))
	assert.ErrorIs(t, err, valutatrade.ErrPersistence)
	var se *StageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StagePersist, se.Stage)
	assert.Equal(t, map[string]string{"USD": "1000"}, balances(t, store))
}

func TestEngine_Deposit(t *testing.T) {
	r := new(mockRater)
	e, store := setup(t, r, nil)

	rcpt, err := e.Deposit(context.Background(), alice, "usd", valutatrade.D(1000))
	require.NoError(t, err)
	assert.Equal(t, Deposit, rcpt.Action)
	assert.Equal(t, map[string]string{"USD": "1000"}, balances(t, store))

	_, err = e.Deposit(context.Background(), alice, "USD", valutatrade.D(0))
	assert.ErrorIs(t, err, valutatrade.ErrInvalidAmount)
	_, err = e.Deposit(context.Background(), valutatrade.Session{}, "USD", valutatrade.D(1))
	assert.ErrorIs(t, err, valutatrade.ErrNotLoggedIn)
	r.AssertNotCalled(t, "Rate", mock.Anything, mock.Anything)
}

func TestEngine_Valuate(t *testing.T) {
	r := new(mockRater)
	r.On("Rate", "USD", "USD").Return(quote("USD", "USD", 1), nil)
	r.On("Rate", "BTC", "USD").Return(quote("BTC", "USD", 50000), nil)
	r.On("Rate", "SOL", "USD").Return(rates.Quote{}, &valutatrade.RateUnavailableError{From: "SOL", To: "USD"})
	e, _ := setup(t, r, map[string]float64{"USD": 500, "BTC": 0.01, "SOL": 3})

	v, err := e.Valuate(context.Background(), alice, "usd")
	require.NoError(t, err)
	assert.Equal(t, "USD", v.Base)
	assert.Equal(t, "1000", v.Total.String())
	require.Len(t, v.Lines, 3)
	assert.Equal(t, "BTC", v.Lines[0].Code)
	assert.Equal(t, "500", v.Lines[0].Value.String())
	assert.False(t, v.Lines[1].Available)
	assert.Equal(t, 1, v.Missing())

	_, err = e.Valuate(context.Background(), alice, "XYZ")
	assert.ErrorIs(t, err, valutatrade.ErrCurrencyNotFound)
	_, err = e.Valuate(context.Background(), valutatrade.Session{}, "USD")
	assert.ErrorIs(t, err, valutatrade.ErrNotLoggedIn)
}

func TestEngine_Valuate_Abort(t *testing.T) {
	r := new(mockRater)
	boom := errors.New("disk on fire")
	r.On("Rate", "BTC", "EUR").Return(rates.Quote{}, boom)
	e, _ := setup(t, r, map[string]float64{"BTC": 1})

	_, err := e.Valuate(context.Background(), alice, "EUR")
	assert.ErrorIs(t, err, boom)
}

// staticSource serves a fixed table to a real rate cache.
type staticSource map[string]float64

func (staticSource) Name() string { return "static" }
func (s staticSource) Fetch(context.Context) (map[string]float64, error) {
	return s, nil
}

func TestEngine_WithRateCache(t *testing.T) {
	dir := t.TempDir()
	store := rates.NewStore(filepath.Join(dir, "rates.json"), nil)
	fetcher := rates.NewFetcher(store, rates.NewHistory(filepath.Join(dir, "exchange_rates.json"), 0), nil, staticSource{"BTC_USD": 50000, "USD_EUR": 0.9})
	cache := rates.NewCache(store, fetcher, 5*time.Minute, nil)
	e, portfolios := setup(t, cache, map[string]float64{"USD": 1000})

	_, err := e.Buy(context.Background(), alice, "BTC", valutatrade.D(0.01))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"BTC": "0.01", "USD": "500"}, balances(t, portfolios))

	v, err := e.Valuate(context.Background(), alice, "EUR")
	require.NoError(t, err)
	assert.Zero(t, v.Missing())
	assert.InDelta(t, 900.0, v.Total.InexactFloat64(), 1e-6)
}
