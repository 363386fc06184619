// Package provider contains the rate sources used to refresh the rate store.
//
// Each source wraps one external API and returns rates keyed by pair key
// ("FROM_TO"), so that the rates package never sees a third party format.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Options configures a Client.
type Options struct {
	Timeout           time.Duration // per attempt
	Attempts          int           // total attempts per request, at least 1
	Delay             time.Duration // first backoff delay, doubled at each retry
	RequestsPerSecond float64       // 0 means unlimited
	Log               *zap.Logger
}

// Client performs HTTP GET requests for the sources, with a per attempt
// timeout, bounded retries and client side rate limiting.
type Client struct {
	http *http.Client
	log  *zap.Logger
}

// NewClient returns a client configured by opts.
func NewClient(opts Options) *Client {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		http: &http.Client{Transport: &retryTransport{
			base:     http.DefaultTransport,
			attempts: opts.Attempts,
			delay:    opts.Delay,
			timeout:  opts.Timeout,
			limiter:  rate.NewLimiter(limit, 1),
			log:      opts.Log,
		}},
		log: opts.Log,
	}
}

// getBytes performs a GET request on addr and returns the body of a 200 response.
func (c *Client) getBytes(ctx context.Context, addr string, header http.Header) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	c.log.Debug("http get", zap.String("host", req.URL.Host), zap.String("status", resp.Status))
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", req.URL.Host, req.URL.Path, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// getJSON performs a GET request on addr and unmarshals the JSON response into data.
func (c *Client) getJSON(ctx context.Context, addr string, data any) error {
	body, err := c.getBytes(ctx, addr, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, data); err != nil {
		return fmt.Errorf("invalid JSON from %s: %w", addr, err)
	}
	return nil
}

// retryTransport retries requests failing with a network error, a 429 or a
// 5xx status, waiting delay, 2*delay, 4*delay... between attempts.
// A Retry-After header replaces the delay, up to the attempt timeout.
// Every attempt waits for the limiter.
type retryTransport struct {
	base     http.RoundTripper
	attempts int
	delay    time.Duration
	timeout  time.Duration
	limiter  *rate.Limiter
	log      *zap.Logger
}

func (t *retryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	var (
		resp *http.Response
		err  error
	)
	delay := t.delay
	for attempt := 1; ; attempt++ {
		if lerr := t.limiter.Wait(req.Context()); lerr != nil {
			return nil, lerr
		}
		resp, err = t.try(req)
		if !retryable(resp, err) || attempt >= t.attempts || req.Context().Err() != nil {
			return resp, err
		}
		wait := delay
		if resp != nil {
			if s, perr := strconv.Atoi(resp.Header.Get("Retry-After")); perr == nil && s > 0 {
				wait = min(time.Duration(s)*time.Second, t.timeout)
			}
			resp.Body.Close()
		}
		t.log.Debug("retrying request", zap.String("host", req.URL.Host), zap.Int("attempt", attempt), zap.Duration("wait", wait), zap.Error(err))
		select {
		case <-time.After(wait):
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
		delay *= 2
	}
}

// try performs a single attempt bounded by the transport timeout.
func (t *retryTransport) try(req *http.Request) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(req.Context(), t.timeout)
	resp, err := t.base.RoundTrip(req.Clone(ctx))
	if err != nil {
		cancel()
		return nil, err
	}
	// the attempt context lives as long as the body is being read.
	resp.Body = &cancelBody{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

func retryable(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
}

type cancelBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelBody) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}
