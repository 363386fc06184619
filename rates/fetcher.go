package rates

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/etnz/valutatrade"
	"go.uber.org/zap"
)

// Source is an external provider of rates.
//
// Fetch returns rates keyed by pair key ("FROM_TO"): 1 FROM is worth rate TO.
type Source interface {
	Name() string
	Fetch(ctx context.Context) (map[string]float64, error)
}

// Batch is the merged result of one fetch across all sources.
type Batch struct {
	At      time.Time
	Records map[string]Record // by pair key, Source holds the provenance
	Sources []string          // sources that succeeded, in configuration order
	Failed  map[string]error  // sources that failed
	Elapsed map[string]time.Duration
}

// Count returns the number of records provided by source.
func (b Batch) Count(source string) int {
	n := 0
	for _, r := range b.Records {
		if r.Source == source {
			n++
		}
	}
	return n
}

// Fetcher collects rates from an ordered list of sources.
type Fetcher struct {
	sources []Source
	store   *Store
	history *History
	log     *zap.Logger
	now     func() time.Time
}

// NewFetcher returns a fetcher over sources. The store and history receive
// the result of Refresh; history can be nil.
func NewFetcher(store *Store, history *History, log *zap.Logger, sources ...Source) *Fetcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Fetcher{
		sources: sources,
		store:   store,
		history: history,
		log:     log,
		now:     time.Now,
	}
}

// SetClock replaces the clock used to timestamp fetched records.
func (f *Fetcher) SetClock(now func() time.Time) { f.now = now }

// Sources returns the names of the configured sources, in order.
func (f *Fetcher) Sources() []string {
	names := make([]string, len(f.sources))
	for i, s := range f.sources {
		names[i] = s.Name()
	}
	return names
}

// Fetch invokes every source and merges their rates.
//
// A failing source is logged and skipped. When two sources provide the same
// pair, the one configured last wins. Fetch fails with
// ErrAllSourcesUnavailable only if no source succeeded.
func (f *Fetcher) Fetch(ctx context.Context) (Batch, error) {
	b := Batch{
		At:      f.now(),
		Records: make(map[string]Record),
		Failed:  make(map[string]error),
		Elapsed: make(map[string]time.Duration),
	}
	if len(f.sources) == 0 {
		return b, fmt.Errorf("%w: no source configured", valutatrade.ErrAllSourcesUnavailable)
	}

	var errs []error
	for _, src := range f.sources {
		name := src.Name()
		start := time.Now()
		rates, err := src.Fetch(ctx)
		b.Elapsed[name] = time.Since(start)
		if err != nil {
			f.log.Warn("rate source failed", zap.String("source", name), zap.Duration("elapsed", b.Elapsed[name]), zap.Error(err))
			b.Failed[name] = err
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		b.Sources = append(b.Sources, name)
		for key, rate := range rates {
			p, err := valutatrade.ParsePairKey(key)
			if err != nil || rate <= 0 || math.IsInf(rate, 0) || math.IsNaN(rate) {
				f.log.Warn("dropping invalid rate", zap.String("source", name), zap.String("pair", key), zap.Float64("rate", rate))
				continue
			}
			b.Records[p.Key()] = Record{Rate: rate, UpdatedAt: b.At, Source: name}
		}
		f.log.Debug("rate source fetched", zap.String("source", name), zap.Int("rates", len(rates)), zap.Duration("elapsed", b.Elapsed[name]))
	}
	if len(b.Sources) == 0 {
		return b, fmt.Errorf("%w: %w", valutatrade.ErrAllSourcesUnavailable, errors.Join(errs...))
	}
	return b, nil
}

// Refresh fetches rates, writes them to the store in a single update and
// appends them to the history.
func (f *Fetcher) Refresh(ctx context.Context) (Batch, error) {
	b, err := f.Fetch(ctx)
	if err != nil {
		return b, err
	}
	if err := f.store.Update(func(s *Snapshot) error { return s.Apply(b) }); err != nil {
		return b, err
	}
	f.log.Info("rates refreshed", zap.Int("rates", len(b.Records)), zap.Strings("sources", b.Sources), zap.Int("failed", len(b.Failed)))

	if f.history == nil {
		return b, nil
	}
	entries := make([]Entry, 0, len(b.Records))
	for p, r := range (&Snapshot{Pairs: b.Records}).All() {
		meta := map[string]string{"request_ms": strconv.FormatInt(b.Elapsed[r.Source].Milliseconds(), 10)}
		entries = append(entries, NewEntry(p, r, meta))
	}
	if err := f.history.Append(entries...); err != nil {
		// The store is already up to date, the history is only an audit trail.
		f.log.Warn("could not append rate history", zap.String("file", f.history.Path()), zap.Error(err))
	}
	return b, nil
}
