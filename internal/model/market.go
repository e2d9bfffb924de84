package model

import "time"

// DateLayout is the ISO calendar date form used for keys and output records.
const DateLayout = "2006-01-02"

// Day truncates t to midnight UTC of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey renders the calendar date of t.
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// PriceRow is one daily close as returned by a history provider.
type PriceRow struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// AssetSeries is a normalized daily close history for one asset.
// Dates are strictly increasing and every close is positive.
type AssetSeries struct {
	Symbol string
	Rows   []PriceRow
}

// Len returns the number of samples.
func (s AssetSeries) Len() int { return len(s.Rows) }

// Flag marks whether an asset closed above its moving average on Date.
type Flag struct {
	Date  time.Time
	Above bool
}
