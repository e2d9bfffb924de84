package collector

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"time"
)

// RetryPolicy bounds how often and how slowly a failing call is repeated.
type RetryPolicy struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	Multiplier  float64       `yaml:"multiplier"`
	// Jitter adds up to this fraction of the computed delay at random.
	Jitter float64 `yaml:"jitter"`

	rnd   func() float64
	sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryPolicy retries three times, starting at one second and doubling.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 4, BaseDelay: time.Second, Multiplier: 2, Jitter: 0.2}
}

// Delay returns the wait before retry number attempt (1-based).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if attempt < 1 || p.BaseDelay <= 0 {
		return 0
	}
	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}
	d := float64(p.BaseDelay) * math.Pow(mult, float64(attempt-1))
	if p.Jitter > 0 {
		rnd := p.rnd
		if rnd == nil {
			rnd = rand.Float64
		}
		d += d * p.Jitter * rnd()
	}
	return time.Duration(d)
}

// Do runs fn until it succeeds, returns a non-retryable error, the context
// ends, or MaxAttempts is reached.
func (p RetryPolicy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for i := 1; i <= attempts; i++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if !IsRetryable(err) || i == attempts {
			break
		}
		backoff := p.Delay(i)
		log.Printf("[WARN] %s failed (attempt %d/%d): %v, retrying in %v", op, i, attempts, err, backoff)
		if err := sleep(ctx, backoff); err != nil {
			return err
		}
	}
	if IsRetryable(lastErr) && attempts > 1 {
		return fmt.Errorf("%s: all %d attempts exhausted: %w", op, attempts, lastErr)
	}
	return lastErr
}

// IsRetryable reports whether err, or anything it wraps, asks to be retried.
func IsRetryable(err error) bool {
	var r interface{ Retryable() bool }
	if errors.As(err, &r) {
		return r.Retryable()
	}
	return false
}

// Retryable marks err as worth repeating.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return retryableError{err}
}

type retryableError struct{ error }

func (e retryableError) Retryable() bool { return true }
func (e retryableError) Unwrap() error   { return e.error }

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
