package breadth

import (
	"MarketBreadth/internal/calculator"
	"MarketBreadth/internal/model"
)

// Classify flags each date of series on which the close is strictly above
// its maPeriod moving average. Dates before the window fills get no entry.
func Classify(series model.AssetSeries, maPeriod int, w calculator.Window) ([]model.Flag, error) {
	closes := make([]float64, len(series.Rows))
	for i, r := range series.Rows {
		closes[i] = r.Close
	}
	ma, ok, err := calculator.TrailingSMA(closes, maPeriod, w)
	if err != nil {
		return nil, err
	}
	flags := make([]model.Flag, 0, len(closes))
	for i, r := range series.Rows {
		if !ok[i] {
			continue
		}
		flags = append(flags, model.Flag{Date: r.Date, Above: closes[i] > ma[i]})
	}
	return flags, nil
}
