package collector

import (
	"context"
	"log"
	"time"

	"MarketBreadth/internal/cache"
	"MarketBreadth/internal/model"
)

// CachedFetcher serves histories from a cache.Store before asking Next.
type CachedFetcher struct {
	Next  HistoryFetcher
	Store cache.Store
	// OnLookup, when set, observes every cache lookup.
	OnLookup func(hit bool)

	now func() time.Time
}

func NewCachedFetcher(next HistoryFetcher, store cache.Store) *CachedFetcher {
	return &CachedFetcher{Next: next, Store: store, now: time.Now}
}

func (c *CachedFetcher) Name() string { return c.Next.Name() + "+cache" }

func (c *CachedFetcher) FetchHistory(ctx context.Context, symbol string, days int) ([]model.PriceRow, error) {
	e, hit, err := c.Store.Get(ctx, symbol, days)
	if err != nil {
		log.Printf("[WARN] cache lookup %s: %v", symbol, err)
		hit = false
	}
	if c.OnLookup != nil {
		c.OnLookup(hit)
	}
	if hit {
		return e.Rows, nil
	}

	rows, err := c.Next.FetchHistory(ctx, symbol, days)
	if err != nil {
		return nil, err
	}
	now := time.Now
	if c.now != nil {
		now = c.now
	}
	if err := c.Store.Put(ctx, cache.NewEntry(symbol, rows, days, now())); err != nil {
		log.Printf("[WARN] cache store %s: %v", symbol, err)
	}
	return rows, nil
}
