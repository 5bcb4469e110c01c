package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// retryDriver wraps a single batch-processing call with bounded retry
// attempts, a per-attempt timeout race, and a fixed delay between attempts.
// The delay deliberately does not grow: the contract specifies a fixed
// retry delay, not exponential backoff.
type retryDriver[T, R any] struct {
	attempts int
	delay    time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

type attemptResult[R any] struct {
	outputs []R
	err     error
}

// run attempts the batch up to the configured number of times and returns
// the outputs, the number of attempts made, and the final error if every
// attempt failed. When db enables deadlock retry and an attempt error is
// classified as a deadlock, one extra attempt is granted for this batch
// only, at most once.
func (d *retryDriver[T, R]) run(
	ctx context.Context,
	batchIndex int,
	items []T,
	fn ProcessFunc[T, R],
	db *DatabaseOptions,
) ([]R, int, error) {
	maxAttempts := d.attempts
	deadlockAware := db != nil && db.DeadlockRetry && db.IsDeadlock != nil
	bonusGranted := false

	var lastErr error
	attempt := 0

	for attempt < maxAttempts {
		attempt++

		outputs, err := d.attemptOnce(ctx, items, fn)
		if err == nil {
			if len(outputs) != len(items) {
				err = fmt.Errorf(
					"%w: got %d outputs for %d items",
					ErrOutputMismatch,
					len(outputs),
					len(items),
				)
			} else {
				if attempt > 1 {
					d.logger.Info("batch succeeded after retry",
						"batch_index", batchIndex,
						"attempt", attempt)
				}
				return outputs, attempt, nil
			}
		}

		lastErr = err
		d.logger.Warn("batch attempt failed",
			"batch_index", batchIndex,
			"attempt", attempt,
			"max_attempts", maxAttempts,
			"error", err)

		if deadlockAware && !bonusGranted && db.IsDeadlock(err) {
			maxAttempts++
			bonusGranted = true
			d.logger.Info("deadlock detected, granting one extra attempt",
				"batch_index", batchIndex,
				"max_attempts", maxAttempts)
		}

		if attempt < maxAttempts && d.delay > 0 {
			select {
			case <-time.After(d.delay):
			case <-ctx.Done():
				return nil, attempt, fmt.Errorf("retry delay interrupted: %w", ctx.Err())
			}
		}
	}

	return nil, attempt, lastErr
}

// attemptOnce races a single processing call against the per-attempt
// timeout. A timed-out attempt counts as failed, but the underlying call
// cannot be force-stopped if fn ignores the attempt context's deadline.
// Panics from fn are recovered and reported as attempt errors.
func (d *retryDriver[T, R]) attemptOnce(
	ctx context.Context,
	items []T,
	fn ProcessFunc[T, R],
) ([]R, error) {
	attemptCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	done := make(chan attemptResult[R], 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- attemptResult[R]{err: fmt.Errorf("%w: %v", ErrProcessPanic, p)}
			}
		}()
		outputs, err := fn(attemptCtx, items)
		done <- attemptResult[R]{outputs: outputs, err: err}
	}()

	select {
	case result := <-done:
		return result.outputs, result.err
	case <-attemptCtx.Done():
		if d.timeout > 0 && errors.Is(attemptCtx.Err(), context.DeadlineExceeded) &&
			ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %s", ErrAttemptTimeout, d.timeout)
		}
		return nil, attemptCtx.Err()
	}
}
