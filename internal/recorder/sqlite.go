package recorder

import (
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"MarketBreadth/internal/model"

	_ "modernc.org/sqlite"
)

// SQLiteRecorder persists breadth history to a SQLite database.
type SQLiteRecorder struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLiteRecorder opens (or creates) the SQLite database and runs migrations.
func NewSQLiteRecorder(dbPath string) (*SQLiteRecorder, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL mode for better concurrent read performance (dashboards read while the bot writes).
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	r := &SQLiteRecorder{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	log.Printf("[INFO] sqlite recorder opened: %s", dbPath)
	return r, nil
}

func (r *SQLiteRecorder) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS breadth_points (
			date        TEXT PRIMARY KEY,
			percentage  REAL NOT NULL,
			count_above INTEGER NOT NULL,
			count_total INTEGER NOT NULL,
			updated_at  INTEGER NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS breadth_runs (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp      INTEGER NOT NULL,
			universe_size  INTEGER,
			included_count INTEGER,
			excluded_count INTEGER,
			ma_period      INTEGER,
			lookback_days  INTEGER,
			points         INTEGER,
			current_pct    REAL,
			mean_pct       REAL,
			signal_label   TEXT,
			threshold_set  TEXT,
			status         TEXT,
			note           TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_ts ON breadth_runs(timestamp)`,
	}

	for _, s := range stmts {
		if _, err := r.db.Exec(s); err != nil {
			return fmt.Errorf("exec %q: %w", s[:40], err)
		}
	}
	return nil
}

// RecordPoints upserts points by date; a later run overwrites earlier values.
func (r *SQLiteRecorder) RecordPoints(points []model.BreadthPoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO breadth_points
		(date, percentage, count_above, count_total, updated_at)
		VALUES (?,?,?,?,?)
		ON CONFLICT(date) DO UPDATE SET
			percentage = excluded.percentage,
			count_above = excluded.count_above,
			count_total = excluded.count_total,
			updated_at = excluded.updated_at`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().Unix()
	for _, p := range points {
		if _, err := stmt.Exec(model.DateKey(p.Date), p.Percentage, p.CountAbove, p.CountTotal, now); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert point %s: %w", model.DateKey(p.Date), err)
		}
	}
	return tx.Commit()
}

func (r *SQLiteRecorder) RecordRun(run *RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ts := run.RanAt
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := r.db.Exec(`INSERT INTO breadth_runs
		(timestamp, universe_size, included_count, excluded_count, ma_period, lookback_days,
		 points, current_pct, mean_pct, signal_label, threshold_set, status, note)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		ts.Unix(), run.UniverseSize, run.IncludedCount, run.ExcludedCount, run.MAPeriod, run.LookbackDays,
		run.Points, run.Current, run.Mean, run.SignalLabel, run.ThresholdSet, run.Status, run.Note,
	)
	return err
}

// LoadPoints returns stored points between from and to inclusive, ordered by date.
func (r *SQLiteRecorder) LoadPoints(from, to time.Time) (model.BreadthSeries, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`SELECT date, percentage, count_above, count_total
		FROM breadth_points WHERE date >= ? AND date <= ? ORDER BY date`,
		model.DateKey(from), model.DateKey(to))
	if err != nil {
		return model.BreadthSeries{}, err
	}
	defer rows.Close()

	var s model.BreadthSeries
	for rows.Next() {
		var (
			date string
			p    model.BreadthPoint
		)
		if err := rows.Scan(&date, &p.Percentage, &p.CountAbove, &p.CountTotal); err != nil {
			return model.BreadthSeries{}, err
		}
		if p.Date, err = time.Parse(model.DateLayout, date); err != nil {
			return model.BreadthSeries{}, fmt.Errorf("parse stored date %q: %w", date, err)
		}
		s.Points = append(s.Points, p)
	}
	return s, rows.Err()
}

func (r *SQLiteRecorder) Close() error {
	log.Println("[INFO] closing sqlite recorder")
	return r.db.Close()
}
