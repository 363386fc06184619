package trade

import (
	"context"
	"errors"
	"time"

	"github.com/etnz/valutatrade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Line is the valuation of one wallet.
type Line struct {
	Code      string
	Balance   decimal.Decimal
	Rate      float64         // 1 Code is worth Rate base, when Available
	Value     decimal.Decimal // Balance*Rate, when Available
	Available bool
	Err       error // why the rate is not available
}

// Valuation is a portfolio converted into a base currency.
type Valuation struct {
	UserID int
	Base   string
	Lines  []Line
	Total  decimal.Decimal // sum of the available values
	At     time.Time
}

// Missing returns the number of wallets left out of the total.
func (v *Valuation) Missing() int {
	n := 0
	for _, l := range v.Lines {
		if !l.Available {
			n++
		}
	}
	return n
}

// Valuate converts every wallet of the session user into base.
//
// A wallet whose rate is unavailable is reported as such and left out of
// the total, any other error aborts.
func (e *Engine) Valuate(ctx context.Context, sess valutatrade.Session, base string) (*Valuation, error) {
	if err := sess.Require(); err != nil {
		return nil, err
	}
	base = valutatrade.NormalizeCode(base)
	if _, err := valutatrade.LookupCurrency(base); err != nil {
		return nil, err
	}
	p, err := e.portfolios.Load(sess.UserID)
	if err != nil {
		return nil, err
	}

	v := &Valuation{UserID: sess.UserID, Base: base, Total: decimal.Zero, At: e.now()}
	for w := range p.Wallets() {
		l := Line{Code: w.Code(), Balance: w.Balance()}
		q, err := e.rates.Rate(ctx, w.Code(), base)
		switch {
		case errors.Is(err, valutatrade.ErrRateUnavailable):
			e.log.Warn("wallet left out of valuation", zap.String("currency", w.Code()), zap.String("base", base), zap.Error(err))
			l.Err = err
		case err != nil:
			return nil, err
		default:
			l.Available = true
			l.Rate = q.Rate
			l.Value = w.Balance().Mul(decimal.NewFromFloat(q.Rate))
			v.Total = v.Total.Add(l.Value)
		}
		v.Lines = append(v.Lines, l)
	}
	return v, nil
}
