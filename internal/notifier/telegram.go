package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"MarketBreadth/internal/collector"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Notifier delivers a formatted report.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string) error
}

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	BotToken string
	ChatID   string
	APIBase  string // empty means api.telegram.org
	Client   *http.Client
	Retry    collector.RetryPolicy
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken, chatID, proxyURL string, retry collector.RetryPolicy) *TelegramNotifier {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &TelegramNotifier{
		BotToken: botToken,
		ChatID:   chatID,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		Retry: retry,
	}
}

func (t *TelegramNotifier) endpoint(method string) string {
	base := t.APIBase
	if base == "" {
		base = defaultTelegramAPI
	}
	return fmt.Sprintf("%s/bot%s/%s", strings.TrimRight(base, "/"), t.BotToken, method)
}

// Send sends a message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	payload := map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint("sendMessage"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return collector.Retryable(fmt.Errorf("send message: %w", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return &collector.StatusError{Provider: "telegram", StatusCode: resp.StatusCode, Body: string(respBody)}
	}
	return nil
}

// SendWithRetry sends a message, backing off on transport errors, 429 and 5xx.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string) error {
	return t.Retry.Do(ctx, "telegram send", func(ctx context.Context) error {
		return t.Send(ctx, text)
	})
}

// LogNotifier writes reports to the log. It is used when no Telegram bot
// is configured.
type LogNotifier struct{}

func (LogNotifier) SendWithRetry(_ context.Context, text string) error {
	log.Printf("[INFO] report:\n%s", text)
	return nil
}
