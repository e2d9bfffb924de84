package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"MarketBreadth/internal/model"
)

// YahooFetcher implements HistoryFetcher using the Yahoo Finance chart API.
type YahooFetcher struct {
	BaseURL   string
	Client    *http.Client
	Retry     RetryPolicy
	SymbolMap map[string]string // maps internal symbol to Yahoo ticker
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string, retry RetryPolicy) *YahooFetcher {
	return &YahooFetcher{
		BaseURL: "https://query1.finance.yahoo.com",
		Client:  newHTTPClient(proxyURL, 30*time.Second),
		Retry:   retry,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooRange picks the smallest chart range holding days trading sessions:
// five sessions per calendar week plus a margin for exchange holidays.
func yahooRange(days int) string {
	calendar := days*7/5 + 15
	switch {
	case calendar <= 30:
		return "1mo"
	case calendar <= 90:
		return "3mo"
	case calendar <= 180:
		return "6mo"
	case calendar <= 365:
		return "1y"
	case calendar <= 730:
		return "2y"
	case calendar <= 1825:
		return "5y"
	default:
		return "10y"
	}
}

func (f *YahooFetcher) FetchHistory(ctx context.Context, symbol string, days int) ([]model.PriceRow, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		f.BaseURL, url.PathEscape(f.yahooSymbol(symbol)), yahooRange(days))

	body, err := getBody(ctx, f.Client, f.Retry, f.Name(), u, http.Header{"User-Agent": {"Mozilla/5.0"}})
	if err != nil {
		return nil, err
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo: no data returned for %s", symbol)
	}

	result := chart.Chart.Result[0]
	closes := result.Indicators.Quote[0].Close
	rows := make([]model.PriceRow, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue // null bars (holidays etc.)
		}
		rows = append(rows, model.PriceRow{Date: model.Day(time.Unix(ts, 0)), Close: *closes[i]})
	}
	return lastRows(rows, days), nil
}

// lastRows keeps the newest n rows. rows must be ordered.
func lastRows(rows []model.PriceRow, n int) []model.PriceRow {
	if n <= 0 || len(rows) <= n {
		return rows
	}
	return rows[len(rows)-n:]
}
