package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"MarketBreadth/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore persists entries in a single table keyed by symbol.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database and its table.
func NewSQLiteStore(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS series_cache (
		symbol         TEXT PRIMARY KEY,
		fetched_at     INTEGER NOT NULL,
		requested_days INTEGER NOT NULL,
		row_count      INTEGER NOT NULL,
		rows_json      TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate series_cache: %w", err)
	}
	log.Printf("[INFO] sqlite series cache opened: %s", dbPath)
	return &SQLiteStore{db: db, ttl: ttl, now: time.Now}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, symbol string, requestedDays int) (Entry, bool, error) {
	var (
		e       Entry
		fetched int64
		raw     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT symbol, fetched_at, requested_days, row_count, rows_json FROM series_cache WHERE symbol = ?`, symbol,
	).Scan(&e.Symbol, &fetched, &e.RequestedDays, &e.RowCount, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("query series_cache: %w", err)
	}
	if err := json.Unmarshal([]byte(raw), &e.Rows); err != nil {
		log.Printf("[WARN] corrupt cache entry for %s, ignoring: %v", symbol, err)
		return Entry{}, false, nil
	}
	e.FetchedAt = time.Unix(0, fetched)
	if !e.Usable(s.now(), s.ttl, requestedDays) {
		return Entry{}, false, nil
	}
	return e, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	rows := e.Rows
	if rows == nil {
		rows = []model.PriceRow{}
	}
	raw, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode rows: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO series_cache
		(symbol, fetched_at, requested_days, row_count, rows_json)
		VALUES (?,?,?,?,?)
		ON CONFLICT(symbol) DO UPDATE SET
			fetched_at = excluded.fetched_at,
			requested_days = excluded.requested_days,
			row_count = excluded.row_count,
			rows_json = excluded.rows_json`,
		e.Symbol, e.FetchedAt.UnixNano(), e.RequestedDays, e.RowCount, string(raw),
	)
	return err
}

func (s *SQLiteStore) Flush(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM series_cache`)
	return err
}

func (s *SQLiteStore) Close() error {
	log.Println("[INFO] closing sqlite series cache")
	return s.db.Close()
}
