package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"MarketBreadth/internal/model"
)

// Pool fetches many histories with bounded parallelism. One asset's
// failure never stops the others.
type Pool struct {
	Workers int
	Timeout time.Duration // per request; zero means none
	Limiter *rate.Limiter // nil means unpaced
	// OnFetch, when set, observes every completed fetch.
	OnFetch func(symbol string, took time.Duration, err error)
}

// NewPool creates a pool. requestsPerSecond <= 0 disables pacing.
func NewPool(workers int, timeout time.Duration, requestsPerSecond float64) *Pool {
	p := &Pool{Workers: workers, Timeout: timeout}
	if requestsPerSecond > 0 {
		p.Limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return p
}

// FetchResult holds the outcome of FetchAll per symbol.
type FetchResult struct {
	Rows   map[string][]model.PriceRow
	Failed map[string]error
}

// FetchAll fetches days of history for every symbol. The returned error is
// non-nil only when ctx ends before all fetches are dispatched or finished.
func (p *Pool) FetchAll(ctx context.Context, f HistoryFetcher, symbols []string, days int) (*FetchResult, error) {
	res := &FetchResult{
		Rows:   make(map[string][]model.PriceRow, len(symbols)),
		Failed: make(map[string]error),
	}
	var mu sync.Mutex

	workers := p.Workers
	if workers <= 0 {
		workers = 1
	}
	var g errgroup.Group
	g.SetLimit(workers)

	for _, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			rows, took, err := p.fetchOne(ctx, f, sym, days)
			if p.OnFetch != nil {
				p.OnFetch(sym, took, err)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed[sym] = fmt.Errorf("%w: %s: %w", ErrDataUnavailable, sym, err)
				return nil
			}
			res.Rows[sym] = rows
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("fetch aborted after %d/%d assets: %w", len(res.Rows)+len(res.Failed), len(symbols), err)
	}
	return res, nil
}

func (p *Pool) fetchOne(ctx context.Context, f HistoryFetcher, sym string, days int) ([]model.PriceRow, time.Duration, error) {
	if p.Limiter != nil {
		if err := p.Limiter.Wait(ctx); err != nil {
			return nil, 0, err
		}
	}
	if p.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.Timeout)
		defer cancel()
	}
	start := time.Now()
	rows, err := f.FetchHistory(ctx, sym, days)
	return rows, time.Since(start), err
}
