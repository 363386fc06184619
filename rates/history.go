package rates

import (
	"slices"
	"sync"
	"time"

	"github.com/etnz/valutatrade"
	"github.com/google/uuid"
)

// DefaultHistoryMax is the default number of entries kept in the history.
const DefaultHistoryMax = 1000

// historyNamespace seeds the name based UUIDs of history entries.
var historyNamespace = uuid.MustParse("6f1c3a52-4e0b-4d8e-9a57-2b7c1f0e9d31")

// Entry is one fetched rate in the history file.
type Entry struct {
	ID        string            `json:"id"`
	From      string            `json:"from_currency"`
	To        string            `json:"to_currency"`
	Rate      float64           `json:"rate"`
	Timestamp time.Time         `json:"timestamp"`
	Source    string            `json:"source"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// NewEntry returns the history entry for r.
//
// The ID is derived from the pair, the timestamp and the source, so that
// appending the same observation twice stores it once.
func NewEntry(p valutatrade.Pair, r Record, meta map[string]string) Entry {
	name := p.Key() + "|" + r.UpdatedAt.UTC().Format(time.RFC3339Nano) + "|" + r.Source
	return Entry{
		ID:        uuid.NewSHA1(historyNamespace, []byte(name)).String(),
		From:      p.From,
		To:        p.To,
		Rate:      r.Rate,
		Timestamp: r.UpdatedAt,
		Source:    r.Source,
		Meta:      meta,
	}
}

// History is an append only JSON array of entries, capped to a maximum
// size. The oldest entries are dropped first.
type History struct {
	path string
	max  int

	mu sync.Mutex
}

// NewHistory returns a history stored at path keeping at most max entries.
// A max <= 0 selects DefaultHistoryMax.
func NewHistory(path string, max int) *History {
	if max <= 0 {
		max = DefaultHistoryMax
	}
	return &History{path: path, max: max}
}

func (h *History) Path() string { return h.path }

// Entries returns all entries, oldest first.
func (h *History) Entries() ([]Entry, error) {
	var entries []Entry
	if _, err := valutatrade.LoadJSON(h.path, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Tail returns the last n entries, oldest first.
func (h *History) Tail(n int) ([]Entry, error) {
	entries, err := h.Entries()
	if err != nil {
		return nil, err
	}
	if n > 0 && len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// Append adds entries to the history, skipping those already present, and
// trims the history to its maximum size.
func (h *History) Append(entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	all, err := h.Entries()
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(all))
	for _, e := range all {
		seen[e.ID] = true
	}
	for _, e := range entries {
		if e.ID == "" {
			e.ID = uuid.NewString()
		}
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		all = append(all, e)
	}
	if len(all) > h.max {
		all = slices.Clone(all[len(all)-h.max:])
	}
	return valutatrade.SaveJSON(h.path, all)
}
