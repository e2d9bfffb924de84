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
)

// StaticUniverse serves a fixed, already ranked symbol list.
type StaticUniverse struct {
	Symbols []string
}

func (u *StaticUniverse) Name() string { return "static" }

func (u *StaticUniverse) TopAssets(_ context.Context, n int) ([]string, error) {
	if len(u.Symbols) == 0 {
		return nil, fmt.Errorf("%w: static universe is empty", ErrUniverseUnavailable)
	}
	if n <= 0 || n > len(u.Symbols) {
		n = len(u.Symbols)
	}
	out := make([]string, n)
	copy(out, u.Symbols[:n])
	return out, nil
}

const coingeckoMaxPerPage = 250

// CoinGeckoUniverse ranks assets by market capitalisation.
type CoinGeckoUniverse struct {
	BaseURL  string
	APIKey   string
	Currency string
	// Exclude drops symbols such as stablecoins before ranking is cut to n.
	Exclude map[string]bool
	Client  *http.Client
	Retry   RetryPolicy
}

func NewCoinGeckoUniverse(apiKey, proxyURL string, exclude []string, retry RetryPolicy) *CoinGeckoUniverse {
	ex := make(map[string]bool, len(exclude))
	for _, s := range exclude {
		ex[strings.ToUpper(s)] = true
	}
	return &CoinGeckoUniverse{
		BaseURL:  "https://api.coingecko.com",
		APIKey:   apiKey,
		Currency: "usd",
		Exclude:  ex,
		Client:   newHTTPClient(proxyURL, 30*time.Second),
		Retry:    retry,
	}
}

func (u *CoinGeckoUniverse) Name() string { return "coingecko" }

type coingeckoMarket struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
}

func (u *CoinGeckoUniverse) TopAssets(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: universe size must be positive", ErrUniverseUnavailable)
	}
	header := http.Header{}
	if u.APIKey != "" {
		header.Set("x-cg-demo-api-key", u.APIKey)
	}

	out := make([]string, 0, n)
	seen := make(map[string]bool, n)
	for page := 1; len(out) < n; page++ {
		params := url.Values{}
		params.Set("vs_currency", u.Currency)
		params.Set("order", "market_cap_desc")
		params.Set("per_page", strconv.Itoa(coingeckoMaxPerPage))
		params.Set("page", strconv.Itoa(page))

		body, err := getBody(ctx, u.Client, u.Retry, u.Name(), u.BaseURL+"/api/v3/coins/markets?"+params.Encode(), header)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUniverseUnavailable, err)
		}
		var markets []coingeckoMarket
		if err := json.Unmarshal(body, &markets); err != nil {
			return nil, fmt.Errorf("%w: decode markets: %w", ErrUniverseUnavailable, err)
		}
		for _, m := range markets {
			sym := strings.ToUpper(m.Symbol)
			if sym == "" || u.Exclude[sym] || seen[sym] {
				continue
			}
			seen[sym] = true
			out = append(out, sym)
			if len(out) == n {
				break
			}
		}
		if len(markets) < coingeckoMaxPerPage {
			break
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: coingecko returned no assets", ErrUniverseUnavailable)
	}
	return out, nil
}
