package breadth

import (
	"fmt"
	"math"
	"sort"

	"MarketBreadth/internal/model"
)

// CoveragePolicy is the minimum fraction of requested days a raw history
// must contain to take part in aggregation.
type CoveragePolicy struct {
	Name  string
	Ratio float64
}

var (
	StrictCoverage  = CoveragePolicy{Name: "strict", Ratio: 0.8}
	LenientCoverage = CoveragePolicy{Name: "lenient", Ratio: 0.3}
)

// ParseCoverage maps a config value to a policy.
func ParseCoverage(s string) (CoveragePolicy, error) {
	switch s {
	case "", StrictCoverage.Name:
		return StrictCoverage, nil
	case LenientCoverage.Name:
		return LenientCoverage, nil
	default:
		return CoveragePolicy{}, fmt.Errorf("unknown coverage policy %q", s)
	}
}

// Required returns the row count needed for requestedDays.
func (p CoveragePolicy) Required(requestedDays int) int {
	// The epsilon absorbs products like 0.3*10 = 3.0000000000000004.
	return int(math.Ceil(p.Ratio*float64(requestedDays) - 1e-9))
}

// Exclusion reasons.
const (
	InsufficientCoverage = "InsufficientCoverage"
	DataUnavailable      = "DataUnavailable"
)

// Rejection explains why an asset was left out of the panel. It is an
// outcome, not an error.
type Rejection struct {
	Symbol   string
	Reason   string
	Rows     int
	Required int
}

func (r Rejection) String() string {
	if r.Reason == InsufficientCoverage {
		return fmt.Sprintf("%s: %s (%d/%d rows)", r.Symbol, r.Reason, r.Rows, r.Required)
	}
	return fmt.Sprintf("%s: %s", r.Symbol, r.Reason)
}

// Normalize orders raw rows by date, drops non-positive closes, keeps the
// first row of each duplicated date and checks coverage. A nil Rejection
// means the series is valid. raw is not modified.
func Normalize(symbol string, raw []model.PriceRow, requestedDays int, policy CoveragePolicy) (model.AssetSeries, *Rejection) {
	rows := make([]model.PriceRow, 0, len(raw))
	for _, r := range raw {
		if !(r.Close > 0) || math.IsInf(r.Close, 0) {
			continue
		}
		rows = append(rows, model.PriceRow{Date: model.Day(r.Date), Close: r.Close})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })

	out := rows[:0]
	for _, r := range rows {
		if len(out) > 0 && out[len(out)-1].Date.Equal(r.Date) {
			continue
		}
		out = append(out, r)
	}

	required := policy.Required(requestedDays)
	if len(out) < required {
		return model.AssetSeries{}, &Rejection{
			Symbol:   symbol,
			Reason:   InsufficientCoverage,
			Rows:     len(out),
			Required: required,
		}
	}
	return model.AssetSeries{Symbol: symbol, Rows: out}, nil
}
