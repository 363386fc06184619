package provider

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PaesslerAG/jsonpath"
	"go.uber.org/zap"
)

// DefaultCoinGeckoURL is the CoinGecko simple price endpoint.
const DefaultCoinGeckoURL = "https://api.coingecko.com/api/v3/simple/price"

// CoinGeckoIDs maps crypto codes to CoinGecko coin ids.
var CoinGeckoIDs = map[string]string{
	"BTC": "bitcoin",
	"ETH": "ethereum",
	"SOL": "solana",
}

// CoinGecko reads crypto prices in USD.
//
//	GET {url}?ids=bitcoin,ethereum&vs_currencies=usd
//	{"bitcoin": {"usd": 59337.21}, "ethereum": {"usd": 3720.5}}
type CoinGecko struct {
	client *Client
	url    string
	codes  []string
	log    *zap.Logger
}

// NewCoinGecko returns a source for the given crypto codes. Codes without a
// known CoinGecko id are ignored. An empty url selects DefaultCoinGeckoURL.
func NewCoinGecko(client *Client, url string, codes []string) *CoinGecko {
	if url == "" {
		url = DefaultCoinGeckoURL
	}
	s := &CoinGecko{client: client, url: url, log: client.log}
	for _, code := range codes {
		code = strings.ToUpper(code)
		if _, ok := CoinGeckoIDs[code]; !ok {
			s.log.Warn("no coingecko id for currency", zap.String("currency", code))
			continue
		}
		s.codes = append(s.codes, code)
	}
	return s
}

func (s *CoinGecko) Name() string { return "coingecko" }

func (s *CoinGecko) Fetch(ctx context.Context) (map[string]float64, error) {
	if len(s.codes) == 0 {
		return nil, errors.New("no crypto currency configured")
	}
	ids := make([]string, len(s.codes))
	for i, code := range s.codes {
		ids[i] = CoinGeckoIDs[code]
	}
	q := url.Values{}
	q.Set("ids", strings.Join(ids, ","))
	q.Set("vs_currencies", "usd")

	var jobj any
	if err := s.client.getJSON(ctx, s.url+"?"+q.Encode(), &jobj); err != nil {
		return nil, err
	}

	rates := make(map[string]float64)
	for i, code := range s.codes {
		path := fmt.Sprintf(`$["%s"].usd`, ids[i])
		jval, err := jsonpath.Get(path, jobj)
		if err != nil {
			s.log.Warn("missing coingecko price", zap.String("currency", code), zap.Error(err))
			continue
		}
		val, ok := jval.(float64)
		if !ok || val <= 0 {
			s.log.Warn("invalid coingecko price", zap.String("currency", code), zap.Any("value", jval))
			continue
		}
		rates[code+"_USD"] = val
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("no price in coingecko response for %s", strings.Join(s.codes, ","))
	}
	return rates, nil
}
