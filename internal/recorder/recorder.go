package recorder

import (
	"time"

	"MarketBreadth/internal/model"
)

// RunRecord summarises one engine run.
type RunRecord struct {
	RanAt         time.Time
	UniverseSize  int
	IncludedCount int
	ExcludedCount int
	MAPeriod      int
	LookbackDays  int
	Points        int
	Current       float64
	Mean          float64
	SignalLabel   string
	ThresholdSet  string
	Status        string // "OK", "EMPTY" or "FAILED"
	Note          string
}

// Recorder persists historical data for analysis.
type Recorder interface {
	RecordPoints(points []model.BreadthPoint) error
	RecordRun(run *RunRecord) error
	Close() error
}

// HistoryReader is implemented by recorders that can read stored points back.
type HistoryReader interface {
	LoadPoints(from, to time.Time) (model.BreadthSeries, error)
}
