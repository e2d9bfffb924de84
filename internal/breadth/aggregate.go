package breadth

import (
	"math"
	"time"

	"MarketBreadth/internal/model"
)

// Percentage is 100*above/total rounded to one decimal.
func Percentage(above, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(above)*1000/float64(total)) / 10
}

// Aggregate counts, for every calendar day from start to end inclusive,
// how many assets carry a flag and how many of those are above. Days with
// no flags are skipped.
func Aggregate(flags map[string][]model.Flag, start, end time.Time) model.BreadthSeries {
	start, end = model.Day(start), model.Day(end)

	lookup := make([]map[string]bool, 0, len(flags))
	for _, fs := range flags {
		byDate := make(map[string]bool, len(fs))
		for _, f := range fs {
			byDate[model.DateKey(f.Date)] = f.Above
		}
		lookup = append(lookup, byDate)
	}

	var series model.BreadthSeries
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		key := model.DateKey(d)
		above, total := 0, 0
		for _, byDate := range lookup {
			v, ok := byDate[key]
			if !ok {
				continue
			}
			total++
			if v {
				above++
			}
		}
		if total == 0 {
			continue
		}
		series.Points = append(series.Points, model.BreadthPoint{
			Date:       d,
			Percentage: Percentage(above, total),
			CountAbove: above,
			CountTotal: total,
		})
	}
	return series
}
