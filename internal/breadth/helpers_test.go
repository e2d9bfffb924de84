package breadth

import (
	"time"

	"MarketBreadth/internal/model"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func rowsFrom(start time.Time, closes ...float64) []model.PriceRow {
	rows := make([]model.PriceRow, len(closes))
	for i, c := range closes {
		rows[i] = model.PriceRow{Date: start.AddDate(0, 0, i), Close: c}
	}
	return rows
}
