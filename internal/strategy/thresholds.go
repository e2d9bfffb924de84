package strategy

import (
	"errors"
	"fmt"

	"MarketBreadth/internal/model"
)

// Threshold maps every percentage up to and including Cut to Label.
type Threshold struct {
	Cut   float64 `yaml:"cut"`
	Label string  `yaml:"label"`
}

// ThresholdSet is an ascending list of cut points. The first level is the
// most bearish bucket and the last the most bullish.
type ThresholdSet struct {
	Name   string      `yaml:"name"`
	Levels []Threshold `yaml:"levels"`
}

// ThreeBucket is the oversold / neutral / overbought mapping.
var ThreeBucket = ThresholdSet{
	Name: "three_bucket",
	Levels: []Threshold{
		{Cut: 20, Label: "Oversold"},
		{Cut: 80, Label: "Neutral"},
		{Cut: 100, Label: "Overbought"},
	},
}

// FiveBucket splits the range into strong-bear … strong-bull.
var FiveBucket = ThresholdSet{
	Name: "five_bucket",
	Levels: []Threshold{
		{Cut: 20, Label: "StrongBear"},
		{Cut: 40, Label: "Bear"},
		{Cut: 60, Label: "Neutral"},
		{Cut: 80, Label: "Bull"},
		{Cut: 100, Label: "StrongBull"},
	},
}

// Lookup returns a built-in set by name.
func Lookup(name string) (ThresholdSet, error) {
	switch name {
	case "", ThreeBucket.Name:
		return ThreeBucket, nil
	case FiveBucket.Name:
		return FiveBucket, nil
	default:
		return ThresholdSet{}, fmt.Errorf("unknown threshold set %q", name)
	}
}

// Validate checks the set is non-empty, strictly ascending and covers 100.
func (ts ThresholdSet) Validate() error {
	if len(ts.Levels) == 0 {
		return errors.New("threshold set has no levels")
	}
	for i := 1; i < len(ts.Levels); i++ {
		if ts.Levels[i].Cut <= ts.Levels[i-1].Cut {
			return fmt.Errorf("threshold %d (%.1f) is not above %.1f", i, ts.Levels[i].Cut, ts.Levels[i-1].Cut)
		}
	}
	if last := ts.Levels[len(ts.Levels)-1].Cut; last < 100 {
		return fmt.Errorf("last threshold %.1f does not cover 100", last)
	}
	return nil
}

// Level returns the index of the first level whose cut is >= pct, or the
// last index when pct is above every cut. It is -1 for an empty set.
// A value equal to a cut falls in the lower bucket.
func (ts ThresholdSet) Level(pct float64) int {
	for i, lv := range ts.Levels {
		if pct <= lv.Cut {
			return i
		}
	}
	return len(ts.Levels) - 1
}

// Classify labels pct with the bucket chosen by Level.
func (ts ThresholdSet) Classify(pct float64) model.Signal {
	i := ts.Level(pct)
	if i < 0 {
		return model.Signal{ThresholdSet: ts.Name}
	}
	return model.Signal{Label: ts.Levels[i].Label, ThresholdSet: ts.Name}
}

// IsBearmost reports whether level is the lowest of several buckets.
func (ts ThresholdSet) IsBearmost(level int) bool {
	return len(ts.Levels) > 1 && level == 0
}

// IsBullmost reports whether level is the highest of several buckets.
func (ts ThresholdSet) IsBullmost(level int) bool {
	return len(ts.Levels) > 1 && level == len(ts.Levels)-1
}
