package batch

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setupTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

// fakeClock lets breaker tests advance time deterministically.
type fakeClock struct {
	current time.Time
}

func (c *fakeClock) now() time.Time {
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestBreaker(threshold int, window time.Duration) (*CircuitBreaker, *fakeClock) {
	breaker := NewCircuitBreaker(true, threshold, window, setupTestLogger())
	clock := &fakeClock{current: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	breaker.now = clock.now
	return breaker, clock
}

func TestCircuitBreakerStaysClosedBelowThreshold(t *testing.T) {
	breaker, _ := newTestBreaker(3, time.Minute)

	breaker.RecordFailure()
	breaker.RecordFailure()

	assert.True(t, breaker.AllowAttempt())
	assert.Equal(t, BreakerClosed, breaker.State())
	assert.Equal(t, 2, breaker.Stats().ConsecutiveFailures)
}

func TestCircuitBreakerOpensAtThreshold(t *testing.T) {
	breaker, _ := newTestBreaker(3, time.Minute)

	breaker.RecordFailure()
	breaker.RecordFailure()
	breaker.RecordFailure()

	assert.Equal(t, BreakerOpen, breaker.State())
	assert.False(t, breaker.AllowAttempt())
}

func TestCircuitBreakerSuccessResetsCounter(t *testing.T) {
	breaker, _ := newTestBreaker(3, time.Minute)

	breaker.RecordFailure()
	breaker.RecordFailure()
	breaker.RecordSuccess()
	breaker.RecordFailure()
	breaker.RecordFailure()

	// counter restarted after the success, so still closed
	assert.Equal(t, BreakerClosed, breaker.State())
	assert.True(t, breaker.AllowAttempt())
}

func TestCircuitBreakerAllowsExactlyOneProbeAfterWindow(t *testing.T) {
	breaker, clock := newTestBreaker(2, time.Minute)

	breaker.RecordFailure()
	breaker.RecordFailure()
	assert.False(t, breaker.AllowAttempt())

	clock.advance(time.Minute)

	assert.Equal(t, BreakerHalfOpen, breaker.State())
	assert.True(t, breaker.AllowAttempt(), "first attempt after the window is the probe")
	assert.False(t, breaker.AllowAttempt(), "only one probe is admitted per window")
}

func TestCircuitBreakerClosesOnSuccessfulProbe(t *testing.T) {
	breaker, clock := newTestBreaker(2, time.Minute)

	breaker.RecordFailure()
	breaker.RecordFailure()
	clock.advance(time.Minute)
	assert.True(t, breaker.AllowAttempt())

	breaker.RecordSuccess()

	assert.Equal(t, BreakerClosed, breaker.State())
	assert.True(t, breaker.AllowAttempt())
	assert.Equal(t, 0, breaker.Stats().ConsecutiveFailures)
}

func TestCircuitBreakerReopensOnFailedProbe(t *testing.T) {
	breaker, clock := newTestBreaker(2, time.Minute)

	breaker.RecordFailure()
	breaker.RecordFailure()
	clock.advance(time.Minute)
	assert.True(t, breaker.AllowAttempt())

	breaker.RecordFailure()

	// window restarted with the probe failure
	assert.Equal(t, BreakerOpen, breaker.State())
	assert.False(t, breaker.AllowAttempt())

	clock.advance(time.Minute)
	assert.True(t, breaker.AllowAttempt(), "a fresh window admits a new probe")
}

func TestCircuitBreakerDisabled(t *testing.T) {
	breaker := NewCircuitBreaker(false, 1, time.Minute, setupTestLogger())

	breaker.RecordFailure()
	breaker.RecordFailure()
	breaker.RecordFailure()

	assert.True(t, breaker.AllowAttempt())
	assert.Equal(t, BreakerClosed, breaker.State())
	assert.Equal(t, 0, breaker.Stats().ConsecutiveFailures)
}

func TestCircuitBreakerStatsSingleSnapshot(t *testing.T) {
	breaker, clock := newTestBreaker(2, time.Minute)

	breaker.RecordFailure()
	breaker.RecordFailure()

	stats := breaker.Stats()
	assert.Equal(t, BreakerOpen, stats.State)
	assert.Equal(t, 2, stats.ConsecutiveFailures)
	assert.Equal(t, clock.now(), stats.LastFailure)

	clock.advance(time.Minute)
	stats = breaker.Stats()
	assert.Equal(t, BreakerHalfOpen, stats.State)
	assert.Equal(t, 2, stats.ConsecutiveFailures)
}

func TestCircuitBreakerStatsConsistentUnderConcurrentUpdates(t *testing.T) {
	breaker, _ := newTestBreaker(1, time.Hour)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			breaker.RecordFailure()
			breaker.RecordSuccess()
		}
	}()

	// With threshold 1 the state and counter always move together, so every
	// snapshot must pair them: open implies a nonzero counter, closed a zero
	// one. Reading them across separate lock acquisitions breaks this.
	for i := 0; i < 200; i++ {
		stats := breaker.Stats()
		switch stats.State {
		case BreakerOpen:
			assert.GreaterOrEqual(t, stats.ConsecutiveFailures, 1)
		case BreakerClosed:
			assert.Zero(t, stats.ConsecutiveFailures)
		}
	}
	<-done
}
