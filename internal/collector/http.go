package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// getBody issues a GET under the retry policy and returns the 200 body.
func getBody(ctx context.Context, client *http.Client, retry RetryPolicy, provider, u string, header http.Header) ([]byte, error) {
	var body []byte
	err := retry.Do(ctx, provider+" GET", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return Retryable(fmt.Errorf("%s fetch: %w", provider, err))
		}
		defer resp.Body.Close()

		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return Retryable(fmt.Errorf("%s read body: %w", provider, err))
		}
		if resp.StatusCode != http.StatusOK {
			return &StatusError{Provider: provider, StatusCode: resp.StatusCode, Body: truncate(string(b), 256)}
		}
		body = b
		return nil
	})
	return body, err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
