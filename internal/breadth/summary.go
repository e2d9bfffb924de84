package breadth

import (
	"math"

	"MarketBreadth/internal/model"
	"MarketBreadth/internal/strategy"
)

// Summarize derives descriptive statistics from series. Extreme-day counts
// use the outer buckets of ts by position, so a single-level set has no
// extreme days. ok is false for an empty series.
func Summarize(series model.BreadthSeries, ts strategy.ThresholdSet) (stats model.SummaryStats, ok bool) {
	if series.Empty() {
		return model.SummaryStats{}, false
	}
	pcts := series.Percentages()

	stats.TotalDays = len(pcts)
	stats.Current = pcts[len(pcts)-1]
	stats.Min, stats.Max = math.Inf(1), math.Inf(-1)

	sum := 0.0
	for _, p := range pcts {
		sum += p
		stats.Min = math.Min(stats.Min, p)
		stats.Max = math.Max(stats.Max, p)

		switch lv := ts.Level(p); {
		case ts.IsBearmost(lv):
			stats.OversoldDayCount++
		case ts.IsBullmost(lv):
			stats.OverboughtDayCount++
		}
	}
	stats.Mean = sum / float64(len(pcts))

	variance := 0.0
	for _, p := range pcts {
		d := p - stats.Mean
		variance += d * d
	}
	stats.StdDev = math.Sqrt(variance / float64(len(pcts)))
	return stats, true
}
