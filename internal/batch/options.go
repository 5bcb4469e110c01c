package batch

import (
	"context"
	"fmt"
	"time"
)

// ProcessFunc processes one batch of items and returns one output per input
// item, aligned by position. Returning an error marks the whole batch
// attempt as failed; the engine retries it per policy.
type ProcessFunc[T, R any] func(ctx context.Context, batch []T) ([]R, error)

// ProgressFunc is invoked after every batch settlement with the number of
// items settled so far (successes and failures) and the total item count.
// Calls happen in completion order, serialized by the engine.
type ProgressFunc func(processed, total int)

// Config is the constructor-time configuration for an Engine. All fields
// have defaults; see DefaultConfig.
type Config struct {
	// BatchSize is the number of items per batch. Must be at least 1.
	BatchSize int

	// MaxConcurrency bounds how many batches are in flight at once.
	// Must be at least 1.
	MaxConcurrency int

	// RetryAttempts is the total number of attempts per batch, including
	// the first. Must be at least 1.
	RetryAttempts int

	// RetryDelay is the fixed wait between attempts. The delay does not
	// grow between attempts.
	RetryDelay time.Duration

	// Timeout bounds each individual attempt. Zero disables the timeout.
	Timeout time.Duration

	// EnableCircuitBreaker gates all breaker behavior. When false the
	// breaker never rejects work.
	EnableCircuitBreaker bool

	// CircuitBreakerThreshold is the number of consecutive batch failures
	// that opens the breaker.
	CircuitBreakerThreshold int

	// CircuitBreakerResetTime is how long the breaker stays open before
	// admitting a single probing attempt.
	CircuitBreakerResetTime time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:               100,
		MaxConcurrency:          4,
		RetryAttempts:           3,
		RetryDelay:              100 * time.Millisecond,
		Timeout:                 30 * time.Second,
		EnableCircuitBreaker:    true,
		CircuitBreakerThreshold: 5,
		CircuitBreakerResetTime: time.Minute,
	}
}

// Validate rejects invalid configuration before any work starts. Validation
// failures never touch the circuit breaker or metrics.
func (c Config) Validate() error {
	if c.BatchSize < 1 {
		return fmt.Errorf("%w: batch size must be at least 1, got %d", ErrInvalidConfig, c.BatchSize)
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf(
			"%w: max concurrency must be at least 1, got %d",
			ErrInvalidConfig,
			c.MaxConcurrency,
		)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf(
			"%w: retry attempts must be at least 1, got %d",
			ErrInvalidConfig,
			c.RetryAttempts,
		)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay cannot be negative, got %s", ErrInvalidConfig, c.RetryDelay)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("%w: timeout cannot be negative, got %s", ErrInvalidConfig, c.Timeout)
	}
	if c.EnableCircuitBreaker {
		if c.CircuitBreakerThreshold < 1 {
			return fmt.Errorf(
				"%w: circuit breaker threshold must be at least 1, got %d",
				ErrInvalidConfig,
				c.CircuitBreakerThreshold,
			)
		}
		if c.CircuitBreakerResetTime <= 0 {
			return fmt.Errorf(
				"%w: circuit breaker reset time must be positive, got %s",
				ErrInvalidConfig,
				c.CircuitBreakerResetTime,
			)
		}
	}

	return nil
}

// Options controls a single Process call.
type Options struct {
	// PreserveOrder re-serializes outputs into original item order
	// regardless of which batch finished first. When false, outputs are
	// appended in completion order.
	PreserveOrder bool

	// ContinueOnError keeps dispatching remaining batches after a failure.
	// When false, the first failed batch stops new dispatch; in-flight
	// batches still finish and contribute to the result.
	ContinueOnError bool

	// Progress, if non-nil, is invoked after every batch settlement.
	Progress ProgressFunc
}

// DefaultOptions returns the options the engine contract assumes:
// continue on error, no order preservation.
func DefaultOptions() Options {
	return Options{ContinueOnError: true}
}

// DatabaseOptions carries the storage-specific strategies for
// ProcessDatabase. The engine never interprets any of these beyond the
// documented hooks; the core stays storage-agnostic.
type DatabaseOptions struct {
	// TxCallback, if non-nil, is invoked once per successfully processed
	// batch (e.g. to commit or publish). An error from it converts the
	// batch outcome to a failure.
	TxCallback func(ctx context.Context) error

	// DeadlockRetry grants one additional attempt beyond RetryAttempts
	// when IsDeadlock classifies an attempt error as a deadlock. The bonus
	// is granted at most once per batch.
	DeadlockRetry bool

	// IsDeadlock classifies whether an error is a transactional deadlock.
	// Required for DeadlockRetry to take effect.
	IsDeadlock func(err error) bool

	// IsolationLevel is forwarded opaquely to the processing function via
	// the attempt context; see IsolationLevelFromContext.
	IsolationLevel any
}

type isolationLevelKey struct{}

// withIsolationLevel attaches the caller-supplied isolation level to the
// context handed to the processing function.
func withIsolationLevel(ctx context.Context, level any) context.Context {
	return context.WithValue(ctx, isolationLevelKey{}, level)
}

// IsolationLevelFromContext returns the isolation level forwarded by
// ProcessDatabase, if any. The engine itself never reads it.
func IsolationLevelFromContext(ctx context.Context) (any, bool) {
	level := ctx.Value(isolationLevelKey{})
	return level, level != nil
}
