package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu  sync.RWMutex
	m   map[string]Entry
	ttl time.Duration
	now func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{m: make(map[string]Entry), ttl: ttl, now: time.Now}
}

func (c *MemoryStore) Get(_ context.Context, symbol string, requestedDays int) (Entry, bool, error) {
	c.mu.RLock()
	e, ok := c.m[symbol]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, false, nil
	}
	if !e.Usable(c.now(), c.ttl, requestedDays) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (c *MemoryStore) Put(_ context.Context, e Entry) error {
	c.mu.Lock()
	c.m[e.Symbol] = e
	c.mu.Unlock()
	return nil
}

func (c *MemoryStore) Flush(_ context.Context) error {
	c.mu.Lock()
	c.m = make(map[string]Entry)
	c.mu.Unlock()
	return nil
}

// Len returns the number of stored entries, usable or not.
func (c *MemoryStore) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.m)
}

func (c *MemoryStore) Close() error { return c.Flush(context.Background()) }
