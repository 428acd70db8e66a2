// Package recovery provides generic resilience combinators: retry with
// exponential backoff, fallback, circuit breaking, and safe execution.
//
// Every combinator is a pure decorator over Operation and holds no domain
// knowledge, so wrappers compose freely (retry around a circuit-broken
// call, a fallback around both, and so on).
package recovery

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Operation is the unit every combinator wraps: an asynchronous call that
// may suspend on I/O and must honor ctx cancellation.
type Operation func(ctx context.Context) (any, error)

// Wrapper decorates an Operation with a resilience concern.
type Wrapper func(Operation) Operation

// Chain applies wrappers so the first listed wrapper is the outermost.
func Chain(op Operation, wrappers ...Wrapper) Operation {
	for i := len(wrappers) - 1; i >= 0; i-- {
		op = wrappers[i](op)
	}
	return op
}

// Safe invokes op and substitutes defaultValue on any failure, suppressing
// the error entirely. Use where a failure must never interrupt the larger
// flow.
func Safe(ctx context.Context, op Operation, defaultValue any, logger *zap.Logger) any {
	out, err := op(ctx)
	if err != nil {
		if logger != nil {
			logger.Warn("safe execution failed, using default", zap.Error(err))
		}
		return defaultValue
	}
	return out
}

// sleep waits for d or until ctx is done, whichever comes first. Returns
// false if the context ended the wait.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
