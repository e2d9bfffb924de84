package breadth

import (
	"reflect"
	"testing"

	"MarketBreadth/internal/calculator"
	"MarketBreadth/internal/model"
)

func TestWorkedScenario(t *testing.T) {
	const maPeriod, requested = 3, 5
	raw := map[string][]model.PriceRow{
		"A": rowsFrom(day0, 1, 2, 3, 4, 5),
		"B": rowsFrom(day0, 5, 4, 3, 2, 1),
		"C": rowsFrom(day0, 7, 8),
	}

	var panel []model.AssetSeries
	for _, sym := range []string{"A", "B", "C"} {
		s, rej := Normalize(sym, raw[sym], requested, StrictCoverage)
		if rej != nil {
			if sym != "C" || rej.Reason != InsufficientCoverage {
				t.Fatalf("unexpected rejection %v", rej)
			}
			continue
		}
		panel = append(panel, s)
	}
	if len(panel) != 2 {
		t.Fatalf("expected C to be rejected, panel has %d assets", len(panel))
	}

	for _, w := range []calculator.Window{calculator.ExcludeCurrent, calculator.IncludeCurrent} {
		series, err := Compute(panel, maPeriod, w, day0, day0.AddDate(0, 0, 4))
		if err != nil {
			t.Fatal(err)
		}
		var found bool
		for _, p := range series.Points {
			if p.Date.Equal(day0.AddDate(0, 0, 3)) {
				found = true
				if p.CountAbove != 1 || p.CountTotal != 2 || p.Percentage != 50.0 {
					t.Errorf("%v: day 3 = %+v, expected 1/2 = 50.0", w, p)
				}
			}
		}
		if !found {
			t.Errorf("%v: no point for day 3", w)
		}
	}
}

func TestAggregate_SkipsDaysWithoutFlags(t *testing.T) {
	flags := map[string][]model.Flag{
		"A": {{Date: day0, Above: true}, {Date: day0.AddDate(0, 0, 3), Above: false}},
		"B": {{Date: day0, Above: false}},
	}
	series := Aggregate(flags, day0, day0.AddDate(0, 0, 5))
	if len(series.Points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(series.Points))
	}
	if p := series.Points[0]; p.CountAbove != 1 || p.CountTotal != 2 || p.Percentage != 50 {
		t.Errorf("day 0: %+v", p)
	}
	if p := series.Points[1]; !p.Date.Equal(day0.AddDate(0, 0, 3)) || p.Percentage != 0 || p.CountTotal != 1 {
		t.Errorf("day 3: %+v", p)
	}
}

func TestAggregate_EmptyResult(t *testing.T) {
	series := Aggregate(map[string][]model.Flag{}, day0, day0.AddDate(0, 0, 9))
	if !series.Empty() {
		t.Errorf("expected empty series, got %d points", len(series.Points))
	}
	series = Aggregate(map[string][]model.Flag{"A": {{Date: day0}}}, day0.AddDate(0, 0, 1), day0)
	if !series.Empty() {
		t.Error("expected empty series for inverted calendar")
	}
}

func TestAggregate_Properties(t *testing.T) {
	flags := make(map[string][]model.Flag)
	symbols := []string{"A", "B", "C", "D", "E", "F", "G"}
	for i, sym := range symbols {
		for d := i; d < 40; d += 1 + i%3 {
			flags[sym] = append(flags[sym], model.Flag{Date: day0.AddDate(0, 0, d), Above: (d+i)%3 == 0})
		}
	}
	start, end := day0, day0.AddDate(0, 0, 45)

	first := Aggregate(flags, start, end)
	second := Aggregate(flags, start, end)
	if !reflect.DeepEqual(first, second) {
		t.Fatal("aggregate is not idempotent")
	}

	for i, p := range first.Points {
		if p.CountTotal <= 0 {
			t.Errorf("point %d: zero-filled point materialized", i)
		}
		if p.CountAbove < 0 || p.CountAbove > p.CountTotal {
			t.Errorf("point %d: counts out of range %d/%d", i, p.CountAbove, p.CountTotal)
		}
		if p.Percentage < 0 || p.Percentage > 100 {
			t.Errorf("point %d: percentage %v out of range", i, p.Percentage)
		}
		if p.Percentage != Percentage(p.CountAbove, p.CountTotal) {
			t.Errorf("point %d: percentage %v does not match counts", i, p.Percentage)
		}
		if i > 0 && !p.Date.After(first.Points[i-1].Date) {
			t.Errorf("point %d: dates not strictly increasing", i)
		}
	}
}

func TestPercentage_Rounding(t *testing.T) {
	tests := []struct {
		above, total int
		want         float64
	}{
		{1, 3, 33.3},
		{2, 3, 66.7},
		{1, 2, 50},
		{0, 5, 0},
		{7, 7, 100},
		{1, 8, 12.5},
	}
	for _, tt := range tests {
		if got := Percentage(tt.above, tt.total); got != tt.want {
			t.Errorf("%d/%d: expected %v, got %v", tt.above, tt.total, tt.want, got)
		}
	}
}
