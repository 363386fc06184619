// Package trade settles buy and sell orders against a portfolio.
//
// An order goes through the stages VALIDATE, PRICE, DEBIT, CREDIT and
// PERSIST. Both wallet mutations are computed on a copy of the portfolio,
// which is then saved in a single write: a failed order never changes the
// stored portfolio.
package trade

import (
	"context"
	"fmt"
	"time"

	"github.com/etnz/valutatrade"
	"github.com/etnz/valutatrade/rates"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Rater provides fresh exchange rates. *rates.Cache implements it.
type Rater interface {
	Rate(ctx context.Context, from, to string) (rates.Quote, error)
}

// PortfolioStore loads and saves portfolios. *account.Portfolios implements it.
type PortfolioStore interface {
	Load(userID int) (*valutatrade.Portfolio, error)
	Save(p *valutatrade.Portfolio) error
}

// Action is the kind of operation.
type Action string

const (
	Buy     Action = "buy"
	Sell    Action = "sell"
	Deposit Action = "deposit"
)

// Change is the balance of one wallet before and after an operation.
type Change struct {
	Code   string
	Before decimal.Decimal
	After  decimal.Decimal
}

// Receipt describes a settled operation.
type Receipt struct {
	ID         string
	Action     Action
	UserID     int
	Currency   string
	Settlement string          // empty for deposits
	Amount     decimal.Decimal // in Currency
	Rate       float64         // 1 Currency is worth Rate Settlement
	Cost       decimal.Decimal // Amount*Rate, in Settlement
	Changes    []Change        // traded wallet first
	At         time.Time
}

// Engine settles operations.
type Engine struct {
	rates      Rater
	portfolios PortfolioStore
	settlement string
	log        *zap.Logger
	now        func() time.Time
}

// NewEngine returns an engine paying with the settlement currency.
func NewEngine(r Rater, portfolios PortfolioStore, settlement string, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		rates:      r,
		portfolios: portfolios,
		settlement: valutatrade.NormalizeCode(settlement),
		log:        log,
		now:        time.Now,
	}
}

// SetClock replaces the clock used to timestamp receipts.
func (e *Engine) SetClock(now func() time.Time) { e.now = now }

func (e *Engine) Settlement() string { return e.settlement }

// Buy buys amount of code, paying amount*rate from the settlement wallet.
func (e *Engine) Buy(ctx context.Context, sess valutatrade.Session, code string, amount decimal.Decimal) (*Receipt, error) {
	return e.trade(ctx, Buy, sess, code, amount)
}

// Sell sells amount of code, crediting amount*rate to the settlement wallet.
func (e *Engine) Sell(ctx context.Context, sess valutatrade.Session, code string, amount decimal.Decimal) (*Receipt, error) {
	return e.trade(ctx, Sell, sess, code, amount)
}

func (e *Engine) trade(ctx context.Context, action Action, sess valutatrade.Session, code string, amount decimal.Decimal) (*Receipt, error) {
	code = valutatrade.NormalizeCode(code)
	op := e.begin(action, sess, code)

	err := op.stage(StageValidate, func() error {
		if err := e.validate(sess, code, amount); err != nil {
			return err
		}
		if code == e.settlement {
			return fmt.Errorf("%w: cannot %s %s against itself", valutatrade.ErrSameCurrency, action, code)
		}
		return nil
	})
	if err != nil {
		return nil, op.fail(err)
	}

	var quote rates.Quote
	err = op.stage(StagePrice, func() (err error) {
		quote, err = e.rates.Rate(ctx, code, e.settlement)
		return err
	})
	if err != nil {
		return nil, op.fail(err)
	}
	cost := amount.Mul(decimal.NewFromFloat(quote.Rate))

	var current, next *valutatrade.Portfolio
	err = op.stage(StageDebit, func() (err error) {
		current, err = e.portfolios.Load(sess.UserID)
		if err != nil {
			return err
		}
		next = current.Clone()
		if action == Buy {
			return next.Withdraw(e.settlement, cost)
		}
		return next.Withdraw(code, amount)
	})
	if err != nil {
		return nil, op.fail(err)
	}

	err = op.stage(StageCredit, func() error {
		if action == Buy {
			return next.Deposit(code, amount)
		}
		return next.Deposit(e.settlement, cost)
	})
	if err != nil {
		return nil, op.fail(err)
	}

	if err := op.stage(StagePersist, func() error { return e.portfolios.Save(next) }); err != nil {
		return nil, op.fail(err)
	}

	r := &Receipt{
		ID:         op.id,
		Action:     action,
		UserID:     sess.UserID,
		Currency:   code,
		Settlement: e.settlement,
		Amount:     amount,
		Rate:       quote.Rate,
		Cost:       cost,
		Changes: []Change{
			{Code: code, Before: current.Balance(code), After: next.Balance(code)},
			{Code: e.settlement, Before: current.Balance(e.settlement), After: next.Balance(e.settlement)},
		},
		At: e.now(),
	}
	op.done(zap.String("rate_source", quote.Source), zap.Float64("rate", quote.Rate), zap.Stringer("cost", cost))
	return r, nil
}

// Deposit credits amount of code to the session user portfolio.
func (e *Engine) Deposit(ctx context.Context, sess valutatrade.Session, code string, amount decimal.Decimal) (*Receipt, error) {
	code = valutatrade.NormalizeCode(code)
	op := e.begin(Deposit, sess, code)

	if err := op.stage(StageValidate, func() error { return e.validate(sess, code, amount) }); err != nil {
		return nil, op.fail(err)
	}
	var current, next *valutatrade.Portfolio
	err := op.stage(StageCredit, func() (err error) {
		current, err = e.portfolios.Load(sess.UserID)
		if err != nil {
			return err
		}
		next = current.Clone()
		return next.Deposit(code, amount)
	})
	if err != nil {
		return nil, op.fail(err)
	}
	if err := op.stage(StagePersist, func() error { return e.portfolios.Save(next) }); err != nil {
		return nil, op.fail(err)
	}

	r := &Receipt{
		ID:       op.id,
		Action:   Deposit,
		UserID:   sess.UserID,
		Currency: code,
		Amount:   amount,
		Changes:  []Change{{Code: code, Before: current.Balance(code), After: next.Balance(code)}},
		At:       e.now(),
	}
	op.done()
	return r, nil
}

// validate checks the amount, the currency and the session, in this order.
func (e *Engine) validate(sess valutatrade.Session, code string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return fmt.Errorf("%w: got %s", valutatrade.ErrInvalidAmount, amount)
	}
	if _, err := valutatrade.LookupCurrency(code); err != nil {
		return err
	}
	return sess.Require()
}
