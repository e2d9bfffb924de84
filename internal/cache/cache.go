package cache

import (
	"context"
	"fmt"
	"time"

	"MarketBreadth/internal/model"
)

// Entry is one cached raw history.
type Entry struct {
	Symbol        string           `json:"symbol"`
	Rows          []model.PriceRow `json:"rows"`
	FetchedAt     time.Time        `json:"fetched_at"`
	RequestedDays int              `json:"requested_days"`
	RowCount      int              `json:"row_count"`
}

// NewEntry stamps rows fetched at now.
func NewEntry(symbol string, rows []model.PriceRow, requestedDays int, now time.Time) Entry {
	return Entry{
		Symbol:        symbol,
		Rows:          rows,
		FetchedAt:     now,
		RequestedDays: requestedDays,
		RowCount:      len(rows),
	}
}

// Usable reports whether the entry is fresh and long enough to answer a
// request for requestedDays. Anything else is a miss.
func (e Entry) Usable(now time.Time, ttl time.Duration, requestedDays int) bool {
	if e.FetchedAt.IsZero() || e.RowCount != len(e.Rows) {
		return false
	}
	return now.Sub(e.FetchedAt) < ttl && e.RowCount >= requestedDays
}

// Store keeps raw per-asset histories. Writers racing on one key are
// allowed; the last write wins.
type Store interface {
	// Get returns a usable entry. A stale, short or unreadable entry is
	// reported as a miss, not an error.
	Get(ctx context.Context, symbol string, requestedDays int) (Entry, bool, error)
	Put(ctx context.Context, e Entry) error
	// Flush drops every entry.
	Flush(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend    string // memory, sqlite or redis
	TTL        time.Duration
	SQLitePath string
	Redis      RedisOptions
}

// Open builds the configured store.
func Open(opts Options) (Store, error) {
	if opts.TTL <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	switch opts.Backend {
	case "memory":
		return NewMemoryStore(opts.TTL), nil
	case "sqlite":
		return NewSQLiteStore(opts.SQLitePath, opts.TTL)
	case "redis":
		return NewRedisStore(opts.Redis, opts.TTL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", opts.Backend)
	}
}
