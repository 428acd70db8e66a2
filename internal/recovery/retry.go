package recovery

import (
	"context"
	"time"
)

// Retry defaults.
const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
)

// RetryPolicy configures the Retry wrapper. Zero values fall back to the
// package defaults.
type RetryPolicy struct {
	// MaxAttempts is the total number of invocations, including the first.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt; it doubles after
	// every subsequent failure.
	BaseDelay time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	return p
}

// Retry re-invokes the wrapped operation on failure with exponential
// backoff, returning the last failure once attempts are exhausted. A
// context cancellation during backoff ends the retry loop immediately.
func Retry(policy RetryPolicy) Wrapper {
	policy = policy.withDefaults()

	return func(op Operation) Operation {
		return func(ctx context.Context) (any, error) {
			delay := policy.BaseDelay
			var lastErr error

			for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
				out, err := op(ctx)
				if err == nil {
					return out, nil
				}
				lastErr = err

				if attempt == policy.MaxAttempts {
					break
				}
				if !sleep(ctx, delay) {
					return nil, ctx.Err()
				}
				delay *= 2
			}

			return nil, lastErr
		}
	}
}
