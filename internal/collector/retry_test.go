package collector

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"
)

func noSleep(calls *[]time.Duration) func(context.Context, time.Duration) error {
	return func(_ context.Context, d time.Duration) error {
		*calls = append(*calls, d)
		return nil
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: 100 * time.Millisecond, Multiplier: 2}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond, 400 * time.Millisecond}
	for i, w := range want {
		if got := p.Delay(i + 1); got != w {
			t.Errorf("attempt %d: expected %v, got %v", i+1, w, got)
		}
	}

	p.Jitter = 0.5
	p.rnd = func() float64 { return 1 }
	if got := p.Delay(1); got != 150*time.Millisecond {
		t.Errorf("with jitter: expected 150ms, got %v", got)
	}
}

func TestRetryPolicy_RetriesRateLimitUntilSuccess(t *testing.T) {
	var slept []time.Duration
	p := RetryPolicy{MaxAttempts: 4, BaseDelay: time.Second, Multiplier: 2, sleep: noSleep(&slept)}

	attempts := 0
	err := p.Do(context.Background(), "test", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &StatusError{Provider: "x", StatusCode: http.StatusTooManyRequests}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if len(slept) != 2 || slept[0] != time.Second || slept[1] != 2*time.Second {
		t.Errorf("unexpected backoff %v", slept)
	}
}

func TestRetryPolicy_BoundedAttempts(t *testing.T) {
	var slept []time.Duration
	p := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond, Multiplier: 2, sleep: noSleep(&slept)}

	attempts := 0
	err := p.Do(context.Background(), "test", func(context.Context) error {
		attempts++
		return &StatusError{Provider: "x", StatusCode: http.StatusTooManyRequests}
	})
	if attempts != 3 {
		t.Errorf("expected 3 attempts, got %d", attempts)
	}
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("expected ErrRateLimited, got %v", err)
	}
}

func TestRetryPolicy_NoRetryForClientErrors(t *testing.T) {
	var slept []time.Duration
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond, sleep: noSleep(&slept)}

	attempts := 0
	err := p.Do(context.Background(), "test", func(context.Context) error {
		attempts++
		return &StatusError{Provider: "x", StatusCode: http.StatusNotFound}
	})
	if attempts != 1 || len(slept) != 0 {
		t.Errorf("expected a single attempt, got %d attempts and %d sleeps", attempts, len(slept))
	}
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusNotFound {
		t.Errorf("expected the 404 error back, got %v", err)
	}
}

func TestRetryPolicy_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}

	attempts := 0
	err := p.Do(ctx, "test", func(context.Context) error {
		attempts++
		cancel()
		return Retryable(errors.New("flaky"))
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if attempts != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}
