package batch

import (
	"log/slog"
	"sync"
	"time"
)

// BreakerState identifies the current circuit-breaker state.
type BreakerState string

// Possible circuit-breaker states.
const (
	BreakerClosed   BreakerState = "closed"
	BreakerOpen     BreakerState = "open"
	BreakerHalfOpen BreakerState = "half_open"
)

// BreakerStats is a point-in-time snapshot of circuit-breaker state.
type BreakerStats struct {
	State               BreakerState `json:"state"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastFailure         time.Time    `json:"last_failure"`
}

// CircuitBreaker tracks consecutive batch failures and gates whether new
// work is attempted. It starts CLOSED, opens once the failure threshold is
// reached, and re-probes with exactly one attempt per elapsed reset window
// (HALF_OPEN). A successful probe closes the breaker; a failed probe
// re-opens it with a fresh window.
//
// When disabled, AllowAttempt always returns true and the recording methods
// are no-ops. All methods are safe for concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	enabled     bool
	threshold   int
	resetWindow time.Duration

	open                bool
	probing             bool
	consecutiveFailures int
	lastFailure         time.Time

	// now is injectable for deterministic tests
	now func() time.Time

	logger *slog.Logger
}

// NewCircuitBreaker creates a circuit breaker. A disabled breaker never
// rejects attempts regardless of the other parameters.
func NewCircuitBreaker(
	enabled bool,
	threshold int,
	resetWindow time.Duration,
	logger *slog.Logger,
) *CircuitBreaker {
	if logger == nil {
		logger = slog.Default()
	}

	return &CircuitBreaker{
		enabled:     enabled,
		threshold:   threshold,
		resetWindow: resetWindow,
		now:         time.Now,
		logger:      logger.With("component", "circuit_breaker"),
	}
}

// AllowAttempt reports whether a new batch may be attempted. While the
// breaker is open it returns false, except that once the reset window has
// elapsed since the last failure it admits exactly one probing attempt.
func (b *CircuitBreaker) AllowAttempt() bool {
	if !b.enabled {
		return true
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return true
	}

	if !b.probing && b.now().Sub(b.lastFailure) >= b.resetWindow {
		b.probing = true
		b.logger.Info("circuit breaker half-open, allowing probe",
			"consecutive_failures", b.consecutiveFailures)
		return true
	}

	return false
}

// RecordSuccess resets the consecutive-failure counter and forces the
// breaker closed.
func (b *CircuitBreaker) RecordSuccess() {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	wasOpen := b.open
	b.consecutiveFailures = 0
	b.open = false
	b.probing = false

	if wasOpen {
		b.logger.Info("circuit breaker closed after successful probe")
	}
}

// RecordFailure increments the consecutive-failure counter and opens the
// breaker once the threshold is reached. A failed probe re-opens the
// breaker and restarts the reset window.
func (b *CircuitBreaker) RecordFailure() {
	if !b.enabled {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.consecutiveFailures++
	b.lastFailure = b.now()

	if b.probing {
		b.probing = false
		b.logger.Warn("circuit breaker probe failed, re-opened",
			"consecutive_failures", b.consecutiveFailures)
		return
	}

	if !b.open && b.consecutiveFailures >= b.threshold {
		b.open = true
		b.logger.Warn("circuit breaker opened",
			"consecutive_failures", b.consecutiveFailures,
			"threshold", b.threshold)
	}
}

// State returns the current breaker state. An open breaker whose reset
// window has elapsed reports BreakerHalfOpen.
func (b *CircuitBreaker) State() BreakerState {
	if !b.enabled {
		return BreakerClosed
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.stateLocked()
}

// stateLocked computes the current state; callers must hold mu.
func (b *CircuitBreaker) stateLocked() BreakerState {
	switch {
	case !b.open:
		return BreakerClosed
	case b.now().Sub(b.lastFailure) >= b.resetWindow:
		return BreakerHalfOpen
	default:
		return BreakerOpen
	}
}

// Stats returns a snapshot of the breaker's current state and counters,
// read under a single lock acquisition so the fields are from one instant.
func (b *CircuitBreaker) Stats() BreakerStats {
	if !b.enabled {
		return BreakerStats{State: BreakerClosed}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return BreakerStats{
		State:               b.stateLocked(),
		ConsecutiveFailures: b.consecutiveFailures,
		LastFailure:         b.lastFailure,
	}
}
