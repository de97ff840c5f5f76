package catalog

import (
	"context"
	"fmt"
	"math"
	"time"
)

// RetryPolicy is a bounded retry with deterministic backoff.
type RetryPolicy struct {
	MaxAttempts int
	Delay       time.Duration
	Multiplier  float64 // <= 1 means a constant delay
	MaxDelay    time.Duration
}

// StartupRetryPolicy waits up to 15 × 10s for the platform to come up.
func StartupRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 15,
		Delay:       10 * time.Second,
		Multiplier:  1,
	}
}

// NextDelay returns the wait after the given 1-based attempt.
func (p RetryPolicy) NextDelay(attempt int) time.Duration {
	delay := float64(p.Delay)
	if p.Multiplier > 1 {
		delay *= math.Pow(p.Multiplier, float64(attempt-1))
	}
	if p.MaxDelay > 0 && delay > float64(p.MaxDelay) {
		return p.MaxDelay
	}
	return time.Duration(delay)
}

// Execute runs fn until it succeeds, attempts run out, or ctx is done.
// fn receives the 1-based attempt number.
func (p RetryPolicy) Execute(ctx context.Context, fn func(attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = fn(attempt); lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		timer := time.NewTimer(p.NextDelay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry canceled after %d attempts: %w", attempt, ctx.Err())
		case <-timer.C:
		}
	}
	return fmt.Errorf("gave up after %d attempts: %w", attempts, lastErr)
}
