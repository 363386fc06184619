package provider

import (
	"context"
	"fmt"

	"github.com/PaesslerAG/jsonpath"
)

// DefaultLSTCURL is the intraday EUR/USD chart of Lang & Schwarz.
const DefaultLSTCURL = "https://www.ls-tc.de/_rpc/json/instrument/chart/dataForInstrument?instrumentId=349938&series=intraday&type=mini"

// lstcPath selects the value of the last intraday point.
const lstcPath = "$.series.intraday.data[-1:][1]"

/*
LSTC reads the latest EUR/USD exchange from the Lang & Schwarz intraday chart.

	{
	    "info": {"isin": "LS000IUSD016", ...},
	    "series": {"intraday": {"data": [[1717236000000, 1.0852], ...]}}
	}

The value is the number of USD for one EUR.
*/
type LSTC struct {
	client *Client
	url    string
}

// NewLSTC returns the source. An empty url selects DefaultLSTCURL.
func NewLSTC(client *Client, url string) *LSTC {
	if url == "" {
		url = DefaultLSTCURL
	}
	return &LSTC{client: client, url: url}
}

func (s *LSTC) Name() string { return "lstc" }

func (s *LSTC) Fetch(ctx context.Context) (map[string]float64, error) {
	var jobj any
	if err := s.client.getJSON(ctx, s.url, &jobj); err != nil {
		return nil, fmt.Errorf("error in wget %q: %w", "EUR/USD", err)
	}
	jval, err := jsonpath.Get(lstcPath, jobj)
	if err != nil {
		return nil, fmt.Errorf("error parsing %q: %q %w", "EUR/USD", lstcPath, err)
	}
	// jsonpath returns a list of one element for slices, keep the first one.
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	val, ok := jval.(float64)
	if !ok || val <= 0 {
		return nil, fmt.Errorf("error parsing %q: %q not a positive float: %v", "EUR/USD", lstcPath, jval)
	}
	return map[string]float64{"EUR_USD": val}, nil
}
