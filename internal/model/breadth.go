package model

import "time"

// BreadthPoint is the cross-sectional result for one calendar date.
type BreadthPoint struct {
	Date       time.Time
	Percentage float64
	CountAbove int
	CountTotal int
}

// BreadthSeries is ordered by date with no duplicates. Dates where no
// asset was eligible are absent.
type BreadthSeries struct {
	Points []BreadthPoint
}

// Empty reports whether aggregation produced no points at all.
func (s BreadthSeries) Empty() bool { return len(s.Points) == 0 }

// Last returns the most recent point.
func (s BreadthSeries) Last() (BreadthPoint, bool) {
	if len(s.Points) == 0 {
		return BreadthPoint{}, false
	}
	return s.Points[len(s.Points)-1], true
}

// Percentages returns the percentage of every point in order.
func (s BreadthSeries) Percentages() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Percentage
	}
	return out
}

// Signal is a qualitative market condition label.
type Signal struct {
	Label        string
	ThresholdSet string
}

// SummaryStats describes a BreadthSeries.
type SummaryStats struct {
	Current            float64
	Mean               float64
	StdDev             float64
	Min                float64
	Max                float64
	OverboughtDayCount int
	OversoldDayCount   int
	TotalDays          int
}
