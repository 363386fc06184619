package valutatrade

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// cryptoDigits is the number of decimals shown for currencies unknown to go-money.
const cryptoDigits = 8

// Money is an amount in a currency, used for display.
type Money struct {
	value decimal.Decimal // as major unit value
	cur   string
}

func M[T float32 | float64 | int | int32 | int64 | uint | uint32 | uint64 | decimal.Decimal](value T, currency string) Money {
	return Money{value: D(value), cur: NormalizeCode(currency)}
}

func (m Money) Currency() string       { return m.cur }
func (m Money) Value() decimal.Decimal { return m.value }
func (m Money) IsZero() bool           { return m.value.IsZero() }

// String formats the amount with the currency symbol and digits when
// go-money knows the currency (fiat), and as "0.01000000 BTC" otherwise.
func (m Money) String() string {
	cur := money.GetCurrency(m.cur)
	if cur == nil {
		return m.value.StringFixed(cryptoDigits) + " " + m.cur
	}
	dec := m.value.Shift(int32(cur.Fraction)).Round(0)
	return cur.Formatter().Format(dec.IntPart())
}

// Digits returns the number of decimals used to display amounts of code.
func Digits(code string) int32 {
	if cur := money.GetCurrency(NormalizeCode(code)); cur != nil {
		return int32(cur.Fraction)
	}
	return cryptoDigits
}
