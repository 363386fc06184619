package renderer

import (
	"slices"
	"time"

	"github.com/etnz/valutatrade"
	"github.com/etnz/valutatrade/rates"
	"github.com/etnz/valutatrade/trade"
)

// RenderPortfolio renders a portfolio valuation.
func RenderPortfolio(username string, v *trade.Valuation) string {
	data := struct {
		Username string
		*trade.Valuation
	}{username, v}
	return renderTemplate("portfolio", "portfolio.md", nil, data)
}

// RenderReceipt renders a settled operation.
func RenderReceipt(r *trade.Receipt) string {
	partials := map[string]string{"changes": "receipt_changes.md"}
	return renderTemplate("receipt", "receipt.md", partials, r)
}

// Quote is the data of the get-rate report.
type Quote struct {
	rates.Quote
	From, To valutatrade.Currency
	TTL      time.Duration
}

// Inverse returns the rate of the reverse pair.
func (q Quote) Inverse() float64 { return 1 / q.Rate }

// RenderQuote renders a single rate.
func RenderQuote(q Quote) string {
	return renderTemplate("quote", "quote.md", nil, q)
}

// RateRow is one line of the rates report.
type RateRow struct {
	Pair  valutatrade.Pair
	rates.Record
	Fresh bool
}

// Rates is the data of the show-rates report.
type Rates struct {
	Now         time.Time
	TTL         time.Duration
	LastRefresh time.Time
	Metadata    rates.Metadata
	Filter      string // currency filter, if any
	Rows        []RateRow
}

// NewRates selects the rows of snap to show.
//
// Only the pairs involving currency are kept when it is not empty. When top
// is positive, the top rows with the highest rate are kept, otherwise all
// rows are kept in pair order.
func NewRates(snap *rates.Snapshot, now time.Time, ttl time.Duration, currency string, top int) *Rates {
	r := &Rates{
		Now:         now,
		TTL:         ttl,
		LastRefresh: snap.LastRefresh,
		Metadata:    snap.Metadata,
		Filter:      valutatrade.NormalizeCode(currency),
	}
	for p, rec := range snap.All() {
		if r.Filter != "" && !p.Involves(r.Filter) {
			continue
		}
		r.Rows = append(r.Rows, RateRow{Pair: p, Record: rec, Fresh: rec.FreshAt(now, ttl)})
	}
	if top > 0 {
		slices.SortStableFunc(r.Rows, func(a, b RateRow) int {
			switch {
			case a.Rate > b.Rate:
				return -1
			case a.Rate < b.Rate:
				return 1
			}
			return 0
		})
		if len(r.Rows) > top {
			r.Rows = r.Rows[:top]
		}
	}
	return r
}

// RenderRates renders the content of the rate store.
func RenderRates(r *Rates) string {
	return renderTemplate("rates", "rates.md", nil, r)
}

// RenderHistory renders history entries, newest first.
func RenderHistory(entries []rates.Entry, total int) string {
	rows := slices.Clone(entries)
	slices.Reverse(rows)
	data := struct {
		Entries []rates.Entry
		Total   int
	}{rows, total}
	return renderTemplate("history", "history.md", nil, data)
}

// Refresh is the data of the update-rates report.
type Refresh struct {
	rates.Batch
	File string
}

// SourceLine is the outcome of one source in a refresh.
type SourceLine struct {
	Name    string
	Count   int
	Elapsed time.Duration
	Err     error
}

// Lines returns the sources in the order they were called.
func (r Refresh) Lines(order []string) []SourceLine {
	lines := make([]SourceLine, 0, len(order))
	for _, name := range order {
		lines = append(lines, SourceLine{
			Name:    name,
			Count:   r.Count(name),
			Elapsed: r.Elapsed[name].Round(time.Millisecond),
			Err:     r.Failed[name],
		})
	}
	return lines
}

// RenderRefresh renders the outcome of a refresh over the sources in order.
func RenderRefresh(r Refresh, order []string) string {
	data := struct {
		Refresh
		Sources []SourceLine
	}{r, r.Lines(order)}
	return renderTemplate("refresh", "refresh.md", nil, data)
}

// RenderCurrencies renders the currency registry.
func RenderCurrencies() string {
	var list []valutatrade.Currency
	for c := range valutatrade.Currencies() {
		list = append(list, c)
	}
	return renderTemplate("currencies", "currencies.md", nil, list)
}
