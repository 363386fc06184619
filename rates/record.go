// Package rates maintains exchange rates between currencies.
//
// Rates are kept in a JSON file (the Store) that is always read from disk and
// replaced atomically on write. The Cache answers rate lookups from the Store,
// deriving inverse and bridged rates when needed, and asks the Fetcher for a
// refresh when nothing fresh is available. Every fetched rate is also
// appended to a capped History file.
package rates

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/etnz/valutatrade"
	"github.com/go-playground/validator/v10"
)

// SourceCalculated is the source of records derived from other records.
const SourceCalculated = "calculated"

var validate = validator.New(validator.WithRequiredStructEnabled())

// Record is the rate of a pair at a given time.
type Record struct {
	Rate      float64   `json:"rate" validate:"gt=0"`
	UpdatedAt time.Time `json:"updated_at" validate:"required"`
	Source    string    `json:"source" validate:"required"`
}

// Validate checks the record invariants.
func (r Record) Validate() error {
	if math.IsInf(r.Rate, 0) || math.IsNaN(r.Rate) {
		return fmt.Errorf("rate must be finite, got %v", r.Rate)
	}
	return validate.Struct(r)
}

// FreshAt returns true if the record is at most ttl old at now.
func (r Record) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(r.UpdatedAt) <= ttl
}

// Calculated returns true if the record was derived from other records.
func (r Record) Calculated() bool { return r.Source == SourceCalculated }

// Metadata describes the last refresh of a Snapshot.
type Metadata struct {
	Sources   []string `json:"sources,omitempty"`
	Failed    []string `json:"failed,omitempty"`
	Refreshes int      `json:"refreshes"`
}

// Snapshot is the content of the rate store.
type Snapshot struct {
	Pairs       map[string]Record `json:"pairs"`
	LastRefresh time.Time         `json:"last_refresh,omitzero"`
	Metadata    Metadata          `json:"metadata"`
}

// NewSnapshot returns an empty snapshot.
func NewSnapshot() *Snapshot {
	return &Snapshot{Pairs: make(map[string]Record)}
}

// Len returns the number of stored pairs.
func (s *Snapshot) Len() int { return len(s.Pairs) }

// Get returns the record for p.
func (s *Snapshot) Get(p valutatrade.Pair) (Record, bool) {
	r, ok := s.Pairs[p.Key()]
	return r, ok
}

// Put stores r for p. Same currency pairs and invalid records are rejected.
func (s *Snapshot) Put(p valutatrade.Pair, r Record) error {
	if p.From == p.To {
		return fmt.Errorf("%w: %s", valutatrade.ErrSameCurrency, p.From)
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("invalid record for %s: %w", p, err)
	}
	if s.Pairs == nil {
		s.Pairs = make(map[string]Record)
	}
	s.Pairs[p.Key()] = r
	return nil
}

// Apply merges a fetched batch into the snapshot.
//
// Calculated records are dropped first: their inputs may just have changed.
// Records that Put rejects are left out and reported in the returned error;
// the other ones are applied.
func (s *Snapshot) Apply(b Batch) error {
	maps.DeleteFunc(s.Pairs, func(_ string, r Record) bool { return r.Calculated() })
	var errs []error
	for key, r := range b.Records {
		p, err := valutatrade.ParsePairKey(key)
		if err == nil {
			err = s.Put(p, r)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	s.LastRefresh = b.At
	s.Metadata.Sources = slices.Clone(b.Sources)
	s.Metadata.Failed = slices.Sorted(maps.Keys(b.Failed))
	s.Metadata.Refreshes++
	return errors.Join(errs...)
}

// All iterates over the stored pairs in key order.
func (s *Snapshot) All() iter.Seq2[valutatrade.Pair, Record] {
	keys := slices.Sorted(maps.Keys(s.Pairs))
	return func(yield func(valutatrade.Pair, Record) bool) {
		for _, key := range keys {
			p, err := valutatrade.ParsePairKey(key)
			if err != nil {
				continue
			}
			if !yield(p, s.Pairs[key]) {
				return
			}
		}
	}
}
