package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"MarketBreadth/internal/model"
)

// binanceMaxLimit is the largest kline page the API returns.
const binanceMaxLimit = 1000

// BinanceFetcher implements HistoryFetcher using Binance spot daily klines.
type BinanceFetcher struct {
	BaseURL string
	Quote   string // quote asset appended to bare symbols, e.g. USDT
	Client  *http.Client
	Retry   RetryPolicy
}

func NewBinanceFetcher(baseURL, proxyURL string, retry RetryPolicy) *BinanceFetcher {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &BinanceFetcher{
		BaseURL: baseURL,
		Quote:   "USDT",
		Client:  newHTTPClient(proxyURL, 10*time.Second),
		Retry:   retry,
	}
}

func (f *BinanceFetcher) Name() string { return "binance" }

func (f *BinanceFetcher) pair(symbol string) string {
	s := strings.ToUpper(symbol)
	if f.Quote == "" || strings.HasSuffix(s, f.Quote) {
		return s
	}
	return s + f.Quote
}

func (f *BinanceFetcher) FetchHistory(ctx context.Context, symbol string, days int) ([]model.PriceRow, error) {
	limit := days
	if limit <= 0 || limit > binanceMaxLimit {
		limit = binanceMaxLimit
	}
	params := url.Values{}
	params.Set("symbol", f.pair(symbol))
	params.Set("interval", "1d")
	params.Set("limit", strconv.Itoa(limit))

	body, err := getBody(ctx, f.Client, f.Retry, f.Name(), f.BaseURL+"/api/v3/klines?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	// Each kline is [openTime, open, high, low, close, volume, closeTime, ...].
	var klines [][]json.RawMessage
	if err := json.Unmarshal(body, &klines); err != nil {
		return nil, fmt.Errorf("binance decode: %w", err)
	}
	rows := make([]model.PriceRow, 0, len(klines))
	for i, k := range klines {
		if len(k) < 5 {
			return nil, fmt.Errorf("binance kline %d: expected at least 5 fields, got %d", i, len(k))
		}
		var openMs int64
		if err := json.Unmarshal(k[0], &openMs); err != nil {
			return nil, fmt.Errorf("binance kline %d open time: %w", i, err)
		}
		var closeStr string
		if err := json.Unmarshal(k[4], &closeStr); err != nil {
			return nil, fmt.Errorf("binance kline %d close: %w", i, err)
		}
		c, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			return nil, fmt.Errorf("binance kline %d close: %w", i, err)
		}
		rows = append(rows, model.PriceRow{Date: model.Day(time.UnixMilli(openMs)), Close: c})
	}
	return rows, nil
}
