package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"time"

	"MarketBreadth/internal/model"
)

// VsTraderFetcher implements HistoryFetcher using the vstrader REST API.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Retry   RetryPolicy
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string, retry RetryPolicy) *VsTraderFetcher {
	return &VsTraderFetcher{
		BaseURL: baseURL,
		APIKey:  apiKey,
		Client:  newHTTPClient(proxyURL, 30*time.Second),
		Retry:   retry,
	}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

// vsBar is the expected JSON shape from the vstrader API.
type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Close     float64 `json:"close"`
}

func (f *VsTraderFetcher) FetchHistory(ctx context.Context, symbol string, days int) ([]model.PriceRow, error) {
	endpoint := fmt.Sprintf("%s/api/v1/bars/daily?symbol=%s&limit=%d", f.BaseURL, url.QueryEscape(symbol), days)

	header := http.Header{}
	if f.APIKey != "" {
		header.Set("Authorization", "Bearer "+f.APIKey)
	}
	body, err := getBody(ctx, f.Client, f.Retry, f.Name(), endpoint, header)
	if err != nil {
		return nil, err
	}

	var bars []vsBar
	if err := json.Unmarshal(body, &bars); err != nil {
		return nil, fmt.Errorf("decode bars: %w", err)
	}
	rows := make([]model.PriceRow, len(bars))
	for i, b := range bars {
		rows[i] = model.PriceRow{Date: model.Day(time.Unix(b.Timestamp, 0)), Close: b.Close}
	}
	// Ensure chronological order
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}
