package collector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"MarketBreadth/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Series map[string][]model.PriceRow
	Errors map[string]error
	// End anchors generated series; zero means today.
	End time.Time

	mu    sync.Mutex
	calls map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchHistory(ctx context.Context, symbol string, days int) ([]model.PriceRow, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[symbol]++
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[symbol]; ok {
		return nil, err
	}
	if rows, ok := m.Series[symbol]; ok {
		return rows, nil
	}
	if m.Series != nil {
		return nil, fmt.Errorf("mock: unknown symbol %s", symbol)
	}
	end := m.End
	if end.IsZero() {
		end = time.Now()
	}
	return GenerateRows(end, 100, 0.001, days), nil
}

// Calls returns how often symbol was requested.
func (m *MockFetcher) Calls(symbol string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[symbol]
}

// GenerateRows builds count daily closes ending on end, drifting by step
// per day around base.
func GenerateRows(end time.Time, base, step float64, count int) []model.PriceRow {
	end = model.Day(end)
	rows := make([]model.PriceRow, count)
	for i := 0; i < count; i++ {
		rows[i] = model.PriceRow{
			Date:  end.AddDate(0, 0, -(count - 1 - i)),
			Close: base * (1 + float64(i-count/2)*step),
		}
	}
	return rows
}
