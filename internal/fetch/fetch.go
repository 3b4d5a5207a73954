// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch performs HTTP GETs against arXiv under one shared
// minimum-interval policy. A single Fetcher is constructed at startup and
// handed to every component that talks to arXiv, so the listing and all
// extractors draw from the same request budget.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/pdiddy/arxiv-indexer/pkg/types"
)

const (
	// DefaultInterval is the minimum spacing between two arXiv requests.
	DefaultInterval = 3 * time.Second

	defaultTimeout   = 60 * time.Second
	defaultUserAgent = "arxiv-indexer/0.1"
)

// TransportError reports a request that failed at the network level or
// returned a non-2xx status. StatusCode is 0 for network failures.
type TransportError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Fetcher issues rate-limited GET requests. It is safe for concurrent use;
// concurrent callers queue on the limiter.
type Fetcher struct {
	client    *http.Client
	limiter   *rate.Limiter
	userAgent string
}

// New returns a Fetcher configured from cfg. Zero values fall back to
// DefaultInterval, a 60s timeout and the default User-Agent.
func New(cfg types.ArxivConfig) *Fetcher {
	interval := cfg.RequestInterval
	if interval <= 0 {
		interval = DefaultInterval
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Fetcher{
		client:    &http.Client{Timeout: timeout},
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		userAgent: ua,
	}
}

// WithClient replaces the underlying HTTP client, e.g. to add a proxy or
// custom TLS roots.
func (f *Fetcher) WithClient(c *http.Client) *Fetcher {
	f.client = c
	return f
}

// Fetch waits for the shared interval to elapse, then GETs url and returns
// the full body. Every attempt consumes the interval, including failures.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for request slot: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &TransportError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", resp.Status),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	return body, nil
}
