package batch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttemptTimeoutCountsAsFailedAttempt(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.RetryAttempts = 2
	cfg.RetryDelay = time.Millisecond
	cfg.Timeout = 20 * time.Millisecond
	engine := newTestEngine(t, cfg)

	// ignores the attempt context deliberately; the engine cannot stop it
	stuck := func(context.Context, []int) ([]int, error) {
		time.Sleep(300 * time.Millisecond)
		return nil, nil
	}

	result, err := engine.Process(context.Background(), sequence(2), stuck, DefaultOptions())

	require.NoError(t, err)
	require.Len(t, result.Failed, 2)
	assert.ErrorIs(t, result.Failed[0].Err, ErrAttemptTimeout)
	assert.Equal(t, 2, result.Failed[0].Attempts)
}

func TestAttemptContextCarriesDeadline(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.Timeout = time.Minute
	engine := newTestEngine(t, cfg)

	var hasDeadline bool
	observe := func(ctx context.Context, items []int) ([]int, error) {
		_, hasDeadline = ctx.Deadline()
		return doubleAll(ctx, items)
	}

	_, err := engine.Process(context.Background(), sequence(2), observe, DefaultOptions())

	require.NoError(t, err)
	assert.True(t, hasDeadline, "well-behaved processing functions can stop early")
}

func TestZeroTimeoutDisablesAttemptDeadline(t *testing.T) {
	cfg := testConfig()
	cfg.Timeout = 0
	engine := newTestEngine(t, cfg)

	var hasDeadline bool
	observe := func(ctx context.Context, items []int) ([]int, error) {
		_, hasDeadline = ctx.Deadline()
		return doubleAll(ctx, items)
	}

	_, err := engine.Process(context.Background(), sequence(2), observe, DefaultOptions())

	require.NoError(t, err)
	assert.False(t, hasDeadline)
}

func TestRetryDelayIsFixedBetweenAttempts(t *testing.T) {
	cfg := testConfig()
	cfg.BatchSize = 2
	cfg.RetryAttempts = 3
	cfg.RetryDelay = 30 * time.Millisecond
	engine := newTestEngine(t, cfg)

	var attempts []time.Time
	alwaysFail := func(context.Context, []int) ([]int, error) {
		attempts = append(attempts, time.Now())
		return nil, assert.AnError
	}

	_, err := engine.Process(context.Background(), sequence(2), alwaysFail, DefaultOptions())

	require.NoError(t, err)
	require.Len(t, attempts, 3)
	for i := 1; i < len(attempts); i++ {
		gap := attempts[i].Sub(attempts[i-1])
		assert.GreaterOrEqual(t, gap, 30*time.Millisecond)
		// fixed delay, no exponential growth
		assert.Less(t, gap, 150*time.Millisecond)
	}
}
