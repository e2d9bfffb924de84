package collector

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"MarketBreadth/internal/model"
)

var (
	// ErrUniverseUnavailable means the ranked asset list could not be
	// obtained. It aborts the whole run.
	ErrUniverseUnavailable = errors.New("universe unavailable")
	// ErrDataUnavailable means one asset's history could not be fetched.
	// Only that asset is excluded.
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrRateLimited matches upstream HTTP 429 responses.
	ErrRateLimited = errors.New("rate limited")
)

// HistoryFetcher returns up to days of the most recent daily closes for
// one asset, oldest first. days counts samples, not calendar days, so a
// provider that skips weekends reaches further back. Providers are
// interchangeable and selected by configuration.
type HistoryFetcher interface {
	FetchHistory(ctx context.Context, symbol string, days int) ([]model.PriceRow, error)
	Name() string
}

// UniverseProvider returns asset identifiers ordered by rank.
type UniverseProvider interface {
	TopAssets(ctx context.Context, n int) ([]string, error)
	Name() string
}

// StatusError is a non-200 upstream response.
type StatusError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.Provider, e.StatusCode, e.Body)
}

// Retryable reports whether repeating the request may succeed.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func (e *StatusError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == http.StatusTooManyRequests
}

func newHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
