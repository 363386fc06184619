package rates

import (
	"context"
	"time"

	"github.com/etnz/valutatrade"
	"go.uber.org/zap"
)

// DefaultTTL is the default maximum age of a served rate.
const DefaultTTL = 5 * time.Minute

// DefaultBridge is the currency used to bridge cross rates.
const DefaultBridge = "USD"

// Method tells how a Quote was obtained.
type Method int

const (
	Identity Method = iota // same currency, always 1
	Direct                 // stored record for the pair
	Inverse                // 1/rate of the stored inverse pair
	Bridge                 // cross rate through the bridge currency
)

func (m Method) String() string {
	switch m {
	case Identity:
		return "identity"
	case Direct:
		return "direct"
	case Inverse:
		return "inverse"
	case Bridge:
		return "bridge"
	}
	return "unknown"
}

// Quote is the answer to a rate lookup: 1 Pair.From is worth Rate Pair.To.
type Quote struct {
	Pair      valutatrade.Pair
	Rate      float64
	UpdatedAt time.Time
	Source    string
	Method    Method
	Refreshed bool // a refresh from the sources was needed
}

// Record returns the quote as a rate record.
func (q Quote) Record() Record {
	return Record{Rate: q.Rate, UpdatedAt: q.UpdatedAt, Source: q.Source}
}

// Cache serves fresh rates from a Store.
type Cache struct {
	store   *Store
	fetcher *Fetcher // can be nil, then the cache never refreshes
	ttl     time.Duration
	bridge  string
	log     *zap.Logger
	now     func() time.Time
}

// NewCache returns a cache over store. A ttl <= 0 selects DefaultTTL.
func NewCache(store *Store, fetcher *Fetcher, ttl time.Duration, log *zap.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		store:   store,
		fetcher: fetcher,
		ttl:     ttl,
		bridge:  DefaultBridge,
		log:     log,
		now:     time.Now,
	}
}

// SetClock replaces the clock used to judge freshness.
func (c *Cache) SetClock(now func() time.Time) { c.now = now }

// SetBridge replaces the bridge currency.
func (c *Cache) SetBridge(code string) { c.bridge = valutatrade.NormalizeCode(code) }

func (c *Cache) TTL() time.Duration { return c.ttl }

// Store returns the underlying store.
func (c *Cache) Store() *Store { return c.store }

// Rate returns a fresh rate for (from, to).
//
// It tries in order: the direct record, the inverse record, a cross rate
// through the bridge currency. When none is fresh, it refreshes the store
// from the sources and tries once more. Derived rates are persisted with
// source SourceCalculated.
func (c *Cache) Rate(ctx context.Context, from, to string) (Quote, error) {
	from, to = valutatrade.NormalizeCode(from), valutatrade.NormalizeCode(to)
	if from == to {
		if err := valutatrade.ValidateCode(from); err != nil {
			return Quote{}, err
		}
		return Quote{Pair: valutatrade.Pair{From: from, To: to}, Rate: 1, UpdatedAt: c.now(), Method: Identity}, nil
	}
	p, err := valutatrade.NewPair(from, to)
	if err != nil {
		return Quote{}, err
	}

	q, ok, err := c.lookup(p)
	if err != nil {
		return Quote{}, err
	}
	if ok {
		return q, nil
	}

	if c.fetcher == nil {
		return Quote{}, &valutatrade.RateUnavailableError{From: from, To: to}
	}
	c.log.Info("no fresh rate, refreshing", zap.String("pair", p.Key()))
	_, ferr := c.fetcher.Refresh(ctx)
	q, ok, err = c.lookup(p)
	if err != nil {
		return Quote{}, err
	}
	if !ok {
		return Quote{}, &valutatrade.RateUnavailableError{From: from, To: to, Err: ferr}
	}
	q.Refreshed = true
	return q, nil
}

// lookup searches the current store for a fresh rate for p, persisting it
// when derived.
func (c *Cache) lookup(p valutatrade.Pair) (Quote, bool, error) {
	snap, err := c.store.Load()
	if err != nil {
		return Quote{}, false, err
	}
	now := c.now()
	q, ok := Resolve(snap, p, now, c.ttl, c.bridge)
	if !ok || q.Method == Direct {
		return q, ok, nil
	}

	err = c.store.Update(func(s *Snapshot) error {
		if err := s.Put(p, q.Record()); err != nil {
			return err
		}
		s.LastRefresh = now
		return nil
	})
	if err != nil {
		// Serving the derived rate is still correct, only the memo is lost.
		c.log.Warn("could not persist calculated rate", zap.String("pair", p.Key()), zap.Error(err))
	}
	return q, true, nil
}

// Resolve finds a fresh rate for p in snap, without side effects.
//
// A calculated record is served as a direct hit while fresh, but is never
// used as the input of another derivation. A derived quote is timestamped
// with its oldest input, so it expires no later than its inputs.
func Resolve(snap *Snapshot, p valutatrade.Pair, now time.Time, ttl time.Duration, bridge string) (Quote, bool) {
	if r, ok := snap.Get(p); ok && r.FreshAt(now, ttl) {
		return Quote{Pair: p, Rate: r.Rate, UpdatedAt: r.UpdatedAt, Source: r.Source, Method: Direct}, true
	}

	// input returns a fresh fetched record for p.
	input := func(p valutatrade.Pair) (Record, bool) {
		r, ok := snap.Get(p)
		if !ok || r.Calculated() || !r.FreshAt(now, ttl) {
			return Record{}, false
		}
		return r, true
	}

	if r, ok := input(p.Inverse()); ok {
		return Quote{Pair: p, Rate: 1 / r.Rate, UpdatedAt: r.UpdatedAt, Source: SourceCalculated, Method: Inverse}, true
	}

	if bridge == "" || p.Involves(bridge) {
		return Quote{}, false
	}
	// leg returns the rate of bridge to code, from BRIDGE_CODE or CODE_BRIDGE.
	leg := func(code string) (float64, time.Time, bool) {
		if r, ok := input(valutatrade.Pair{From: bridge, To: code}); ok {
			return r.Rate, r.UpdatedAt, true
		}
		if r, ok := input(valutatrade.Pair{From: code, To: bridge}); ok {
			return 1 / r.Rate, r.UpdatedAt, true
		}
		return 0, time.Time{}, false
	}
	bFrom, tFrom, ok := leg(p.From)
	if !ok {
		return Quote{}, false
	}
	bTo, tTo, ok := leg(p.To)
	if !ok {
		return Quote{}, false
	}
	oldest := tFrom
	if tTo.Before(oldest) {
		oldest = tTo
	}
	return Quote{Pair: p, Rate: (1 / bFrom) * bTo, UpdatedAt: oldest, Source: SourceCalculated, Method: Bridge}, true
}
