package retry

import (
	"context"
	"fmt"
	"time"
)

// Policy describes exponential backoff: the delay before retry n (0-based) is
// min(BaseDelay * 2^n, MaxDelay). The operation runs at most MaxRetries+1 times.
type Policy struct {
	MaxRetries int           `mapstructure:"max_retries"`
	BaseDelay  time.Duration `mapstructure:"base_delay"`
	MaxDelay   time.Duration `mapstructure:"max_delay"`
}

// DefaultPolicy matches the ingestion defaults.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MaxDelay:   60 * time.Second,
	}
}

// Delay returns the wait before the given retry (0-based).
func (p Policy) Delay(retry int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 0; i < retry; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Attempts is the total number of times Do will call the operation.
func (p Policy) Attempts() int {
	if p.MaxRetries < 0 {
		return 1
	}
	return p.MaxRetries + 1
}

// OnRetry is called after a failed attempt that will be retried.
type OnRetry func(attempt int, err error, wait time.Duration)

// Do calls fn until it succeeds, the attempts are exhausted or ctx is done.
// attempt passed to fn is 1-based. The returned error wraps the last failure.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context, attempt int) error, onRetry OnRetry) error {
	attempts := p.Attempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("retry aborted after attempt %d: %w (last error: %v)", attempt, ctx.Err(), lastErr)
		}

		wait := p.Delay(attempt - 1)
		if onRetry != nil {
			onRetry(attempt, lastErr, wait)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("retry aborted after attempt %d: %w (last error: %v)", attempt, ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return fmt.Errorf("all %d attempts failed: %w", attempts, lastErr)
}
