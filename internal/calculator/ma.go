package calculator

import (
	"errors"
	"fmt"
)

// Window selects which closes feed the moving average that day i is compared against.
type Window int

const (
	// ExcludeCurrent averages the period closes strictly before day i.
	ExcludeCurrent Window = iota
	// IncludeCurrent averages the period closes ending on day i.
	IncludeCurrent
)

func (w Window) String() string {
	switch w {
	case ExcludeCurrent:
		return "exclude_current"
	case IncludeCurrent:
		return "include_current"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindow maps a config value to a Window. Empty means ExcludeCurrent.
func ParseWindow(s string) (Window, error) {
	switch s {
	case "", "exclude_current":
		return ExcludeCurrent, nil
	case "include_current":
		return IncludeCurrent, nil
	default:
		return 0, fmt.Errorf("unknown ma window %q", s)
	}
}

// CalculateSMA computes the simple moving average of the given prices over the specified period.
func CalculateSMA(prices []float64, period int) (float64, error) {
	if period <= 0 {
		return 0, errors.New("period must be positive")
	}
	if len(prices) < period {
		return 0, errors.New("not enough data for SMA calculation")
	}
	sum := 0.0
	for i := len(prices) - period; i < len(prices); i++ {
		sum += prices[i]
	}
	return sum / float64(period), nil
}

// TrailingSMA returns the moving average for every index of closes under
// window w. ok[i] is false until enough samples exist.
//
// Each window is summed from scratch so that a flat series yields a mean
// exactly equal to its price.
func TrailingSMA(closes []float64, period int, w Window) (ma []float64, ok []bool, err error) {
	if period <= 0 {
		return nil, nil, errors.New("period must be positive")
	}
	ma = make([]float64, len(closes))
	ok = make([]bool, len(closes))
	for i := range closes {
		end := i // exclusive
		if w == IncludeCurrent {
			end = i + 1
		}
		if end < period {
			continue
		}
		v, err := CalculateSMA(closes[:end], period)
		if err != nil {
			return nil, nil, err
		}
		ma[i] = v
		ok[i] = true
	}
	return ma, ok, nil
}
