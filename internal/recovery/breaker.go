package recovery

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Circuit breaker defaults.
const (
	DefaultBreakerThreshold = 5
	DefaultBreakerCooldown  = 60 * time.Second
)

// ErrCircuitOpen is the synthetic failure returned when a circuit rejects
// a call without invoking the wrapped operation. Callers can distinguish
// it from a genuine dependency failure with errors.Is.
var ErrCircuitOpen = errors.New("circuit breaker open")

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// breaker tracks consecutive failures for one named dependency.
type breaker struct {
	state    breakerState
	failures int
	openedAt time.Time
}

// BreakerSet manages one circuit breaker per named external dependency.
// Breaker entries are created lazily on first failure; reads dominate, so
// the set favors reader concurrency.
type BreakerSet struct {
	mu       sync.RWMutex
	breakers map[string]*breaker

	threshold int
	cooldown  time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

// BreakerOption customizes a BreakerSet.
type BreakerOption func(*BreakerSet)

// WithThreshold sets the consecutive-failure count that opens a circuit.
func WithThreshold(n int) BreakerOption {
	return func(b *BreakerSet) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithCooldown sets how long an open circuit rejects calls before allowing
// a half-open probe.
func WithCooldown(d time.Duration) BreakerOption {
	return func(b *BreakerSet) {
		if d > 0 {
			b.cooldown = d
		}
	}
}

// WithClock replaces the time source, for tests.
func WithClock(now func() time.Time) BreakerOption {
	return func(b *BreakerSet) {
		if now != nil {
			b.now = now
		}
	}
}

// NewBreakerSet creates a breaker set with the package defaults
// (threshold 5, cooldown 60s).
func NewBreakerSet(logger *zap.Logger, opts ...BreakerOption) *BreakerSet {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BreakerSet{
		breakers:  make(map[string]*breaker),
		threshold: DefaultBreakerThreshold,
		cooldown:  DefaultBreakerCooldown,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Wrap returns a Wrapper guarding the operation behind the circuit named
// name. While the circuit is open, calls fail immediately with
// ErrCircuitOpen; after the cooldown exactly one probe is let through.
func (b *BreakerSet) Wrap(name string) Wrapper {
	return func(op Operation) Operation {
		return func(ctx context.Context) (any, error) {
			if err := b.admit(name); err != nil {
				return nil, err
			}

			out, err := op(ctx)
			if err != nil {
				b.recordFailure(name)
				return nil, err
			}
			b.recordSuccess(name)
			return out, nil
		}
	}
}

// admit decides whether a call may proceed, transitioning open circuits to
// half-open once the cooldown has elapsed.
func (b *BreakerSet) admit(name string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	br, ok := b.breakers[name]
	if !ok || br.state == stateClosed {
		return nil
	}

	switch br.state {
	case stateOpen:
		if b.now().Sub(br.openedAt) < b.cooldown {
			return fmt.Errorf("%w: %s", ErrCircuitOpen, name)
		}
		// Cooldown elapsed: this caller becomes the single half-open probe.
		br.state = stateHalfOpen
		b.logger.Info("circuit half-open, allowing probe", zap.String("service", name))
		return nil
	case stateHalfOpen:
		// A probe is already in flight.
		return fmt.Errorf("%w: %s", ErrCircuitOpen, name)
	default:
		return nil
	}
}

func (b *BreakerSet) recordFailure(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	br, ok := b.breakers[name]
	if !ok {
		br = &breaker{}
		b.breakers[name] = br
	}

	if br.state == stateHalfOpen {
		// Failed probe: reopen and restart the cooldown.
		br.state = stateOpen
		br.openedAt = b.now()
		b.logger.Warn("circuit probe failed, reopening", zap.String("service", name))
		return
	}

	br.failures++
	if br.failures >= b.threshold && br.state != stateOpen {
		br.state = stateOpen
		br.openedAt = b.now()
		b.logger.Warn("circuit opened",
			zap.String("service", name),
			zap.Int("failures", br.failures))
	}
}

func (b *BreakerSet) recordSuccess(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if br, ok := b.breakers[name]; ok {
		if br.state != stateClosed {
			b.logger.Info("circuit closed", zap.String("service", name))
		}
		br.state = stateClosed
		br.failures = 0
	}
}

// Reset closes the named circuit and clears its failure count.
func (b *BreakerSet) Reset(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if br, ok := b.breakers[name]; ok {
		br.state = stateClosed
		br.failures = 0
		br.openedAt = time.Time{}
	}
}

// Status reports the current state of every breaker, keyed by dependency
// name.
func (b *BreakerSet) Status() map[string]string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	status := make(map[string]string, len(b.breakers))
	for name, br := range b.breakers {
		status[name] = br.state.String()
	}
	return status
}
