package breadth

import (
	"math"

	"MarketBreadth/internal/model"
)

// MinCorrelationOverlap is the fewest shared dates Correlate accepts.
const MinCorrelationOverlap = 10

// Correlate returns the Pearson correlation of a and b over the dates they
// share. ok is false when fewer than MinCorrelationOverlap dates overlap or
// either side is flat.
func Correlate(a, b model.AssetSeries) (float64, bool) {
	byDate := make(map[string]float64, len(a.Rows))
	for _, r := range a.Rows {
		byDate[model.DateKey(r.Date)] = r.Close
	}
	var xs, ys []float64
	for _, r := range b.Rows {
		if x, ok := byDate[model.DateKey(r.Date)]; ok {
			xs = append(xs, x)
			ys = append(ys, r.Close)
		}
	}
	if len(xs) < MinCorrelationOverlap {
		return 0, false
	}

	n := float64(len(xs))
	var mx, my float64
	for i := range xs {
		mx += xs[i]
		my += ys[i]
	}
	mx /= n
	my /= n

	var cov, vx, vy float64
	for i := range xs {
		dx, dy := xs[i]-mx, ys[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return 0, false
	}
	r := cov / math.Sqrt(vx*vy)
	return math.Max(-1, math.Min(1, r)), true
}

// BreadthAsSeries exposes a breadth series as an AssetSeries so it can be
// correlated against a reference asset.
func BreadthAsSeries(name string, s model.BreadthSeries) model.AssetSeries {
	rows := make([]model.PriceRow, len(s.Points))
	for i, p := range s.Points {
		rows[i] = model.PriceRow{Date: p.Date, Close: p.Percentage}
	}
	return model.AssetSeries{Symbol: name, Rows: rows}
}
