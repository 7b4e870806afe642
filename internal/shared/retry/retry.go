package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Policy controls how Do retries.
type Policy struct {
	// MaxAttempts is the total number of calls, including the first. Values
	// below 1 mean a single call.
	MaxAttempts int
	// Backoff returns the delay after the given failed attempt (1-based).
	Backoff func(attempt int) time.Duration
	// Sleep waits for d. Defaults to a timer that honors ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// ShouldRetry filters errors worth another attempt. Nil retries everything.
	ShouldRetry func(err error) bool
	// OnRetry is called before sleeping ahead of the next attempt.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// LinearBackoff returns attempt*step.
func LinearBackoff(step time.Duration) func(int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt) * step
	}
}

// Do calls fn until it succeeds, the policy is exhausted, or ctx ends. The
// last error is wrapped with the attempt count.
func Do[T any](ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) (T, error)) (T, error) {
	var zero T
	attempts := max(p.MaxAttempts, 1)
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	var lastErr error
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		made = attempt
		result, err := fn(ctx, attempt)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt == attempts || (p.ShouldRetry != nil && !p.ShouldRetry(err)) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, errors.Join(lastErr, ctxErr)
		}

		var delay time.Duration
		if p.Backoff != nil {
			delay = p.Backoff(attempt)
		}
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if err := sleep(ctx, delay); err != nil {
			return zero, errors.Join(lastErr, err)
		}
	}
	return zero, fmt.Errorf("after %d attempts: %w", made, lastErr)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
