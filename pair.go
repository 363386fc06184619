package valutatrade

import (
	"fmt"
	"strings"
)

// pairSeparator separates the two codes in a pair key.
const pairSeparator = "_"

// Pair is an ordered (from, to) currency tuple.
//
// A rate attached to a pair reads as "1 From is worth rate To".
type Pair struct {
	From string
	To   string
}

// NewPair normalizes and validates both codes.
//
// Same-currency pairs are rejected: their rate is implicitly 1 and never stored.
func NewPair(from, to string) (Pair, error) {
	p := Pair{From: NormalizeCode(from), To: NormalizeCode(to)}
	if err := ValidateCode(p.From); err != nil {
		return Pair{}, err
	}
	if err := ValidateCode(p.To); err != nil {
		return Pair{}, err
	}
	if p.From == p.To {
		return Pair{}, fmt.Errorf("%w: %s", ErrSameCurrency, p.From)
	}
	return p, nil
}

// ParsePairKey parses a "FROM_TO" key.
func ParsePairKey(key string) (Pair, error) {
	from, to, ok := strings.Cut(key, pairSeparator)
	if !ok {
		return Pair{}, fmt.Errorf("invalid pair key %q: missing %q separator", key, pairSeparator)
	}
	p, err := NewPair(from, to)
	if err != nil {
		return Pair{}, fmt.Errorf("invalid pair key %q: %w", key, err)
	}
	return p, nil
}

// Key returns the store key of the pair: "FROM_TO".
func (p Pair) Key() string { return p.From + pairSeparator + p.To }

// Inverse returns the (to, from) pair.
func (p Pair) Inverse() Pair { return Pair{From: p.To, To: p.From} }

// Involves returns true if code is one of the pair's currencies.
func (p Pair) Involves(code string) bool { return p.From == code || p.To == code }

func (p Pair) String() string { return p.From + "→" + p.To }
