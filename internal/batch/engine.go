package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Engine orchestrates resilient batch processing: it splits the input into
// batches, dispatches them under a concurrency bound, consults the circuit
// breaker before each batch, retries failed batches through the retry
// driver, and folds every outcome into one aggregated Result plus the
// engine's process-wide metrics.
//
// The metrics accumulator and the circuit breaker are the only state shared
// across concurrently executing batches; both are internally synchronized.
// The engine never mutates the caller's input collection.
type Engine[T, R any] struct {
	cfg     Config
	breaker *CircuitBreaker
	metrics *Metrics
	logger  *slog.Logger
}

// New creates an Engine with the given configuration. Invalid configuration
// is rejected immediately.
func New[T, R any](cfg Config, logger *slog.Logger) (*Engine[T, R], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "batch_engine")

	return &Engine[T, R]{
		cfg: cfg,
		breaker: NewCircuitBreaker(
			cfg.EnableCircuitBreaker,
			cfg.CircuitBreakerThreshold,
			cfg.CircuitBreakerResetTime,
			logger,
		),
		metrics: NewMetrics(),
		logger:  logger,
	}, nil
}

// Process runs every item through fn in batches of the configured size.
// Processing errors never escape: every item ends up either in
// Result.Processed or as a FailureRecord in Result.Failed. Only a nil fn or
// a malformed configuration fails the whole call.
func (e *Engine[T, R]) Process(
	ctx context.Context,
	items []T,
	fn ProcessFunc[T, R],
	opts Options,
) (*Result[T, R], error) {
	return e.run(ctx, items, fn, opts, nil)
}

// ProcessConditional partitions items by pred first: items failing the
// predicate are collected verbatim into Skipped and never enter the
// batching pipeline; the rest proceed through the ordinary Process
// algorithm.
func (e *Engine[T, R]) ProcessConditional(
	ctx context.Context,
	items []T,
	pred func(item T) bool,
	fn ProcessFunc[T, R],
	opts Options,
) (*ConditionalResult[T, R], error) {
	if pred == nil {
		return nil, ErrNilPredicate
	}

	var eligible, skipped []T
	for _, item := range items {
		if pred(item) {
			eligible = append(eligible, item)
		} else {
			skipped = append(skipped, item)
		}
	}

	result, err := e.run(ctx, eligible, fn, opts, nil)
	if err != nil {
		return nil, err
	}

	return &ConditionalResult[T, R]{Result: result, Skipped: skipped}, nil
}

// ProcessDatabase is the storage-aware variant of Process. The engine does
// not interpret any of the injected strategies: the transaction callback
// runs once per successfully processed batch, the deadlock classifier only
// decides whether one extra attempt is granted, and the isolation level is
// forwarded opaquely to fn via the context.
func (e *Engine[T, R]) ProcessDatabase(
	ctx context.Context,
	items []T,
	fn ProcessFunc[T, R],
	opts Options,
	dbOpts DatabaseOptions,
) (*Result[T, R], error) {
	return e.run(ctx, items, fn, opts, &dbOpts)
}

// Metrics returns a snapshot copy of the engine's process-wide metrics.
func (e *Engine[T, R]) Metrics() MetricsSnapshot {
	return e.metrics.Snapshot()
}

// ResetMetrics zeroes all metric counters. Circuit-breaker state is not
// affected.
func (e *Engine[T, R]) ResetMetrics() {
	e.metrics.Reset()
	e.logger.Info("engine metrics reset")
}

// Breaker returns a snapshot of the engine's circuit-breaker state.
func (e *Engine[T, R]) Breaker() BreakerStats {
	return e.breaker.Stats()
}

// run implements the shared dispatch algorithm behind all Process variants.
func (e *Engine[T, R]) run(
	ctx context.Context,
	items []T,
	fn ProcessFunc[T, R],
	opts Options,
	db *DatabaseOptions,
) (*Result[T, R], error) {
	if fn == nil {
		return nil, ErrNilProcessFunc
	}

	chunks, err := Chunk(items, e.cfg.BatchSize)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &Result[T, R]{}

	if len(chunks) == 0 {
		return result, nil
	}

	if db != nil && db.IsolationLevel != nil {
		ctx = withIsolationLevel(ctx, db.IsolationLevel)
	}

	driver := &retryDriver[T, R]{
		attempts: e.cfg.RetryAttempts,
		delay:    e.cfg.RetryDelay,
		timeout:  e.cfg.Timeout,
		logger:   e.logger,
	}

	e.logger.Info("batch processing started",
		"total_items", len(items),
		"batch_count", len(chunks),
		"batch_size", e.cfg.BatchSize,
		"max_concurrency", e.cfg.MaxConcurrency)

	total := len(items)
	var (
		mu         sync.Mutex
		outputs    = make([][]R, len(chunks))
		failures   = make([][]FailureRecord[T], len(chunks))
		settled    = make([]int, 0, len(chunks)) // batch indexes in completion order
		settledCnt int                           // items settled so far, for progress
		halt       bool
		ctxErr     error
	)

	sem := semaphore.NewWeighted(int64(e.cfg.MaxConcurrency))
	var wg sync.WaitGroup

	dispatched := len(chunks)
	for i, chunk := range chunks {
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
		default:
		}
		if ctxErr != nil {
			dispatched = i
			break
		}

		if acqErr := sem.Acquire(ctx, 1); acqErr != nil {
			ctxErr = acqErr
			dispatched = i
			break
		}

		// Re-check after waiting for a slot: a batch may have failed with
		// ContinueOnError disabled while this dispatch was blocked.
		mu.Lock()
		stopped := halt
		mu.Unlock()
		if stopped {
			sem.Release(1)
			dispatched = i
			break
		}

		wg.Add(1)
		go func(idx int, chunk []T) {
			defer wg.Done()
			defer sem.Release(1)

			chunkOutputs, chunkFailures, duration, ok := e.runBatch(ctx, idx, chunk, fn, driver, db)

			succeeded := 0
			if ok {
				succeeded = len(chunk)
			}
			e.metrics.recordBatch(len(chunk), succeeded, duration)

			mu.Lock()
			if ok {
				outputs[idx] = chunkOutputs
			} else {
				failures[idx] = chunkFailures
				if !opts.ContinueOnError {
					halt = true
				}
			}
			settled = append(settled, idx)
			settledCnt += len(chunk)
			if opts.Progress != nil {
				opts.Progress(settledCnt, total)
			}
			mu.Unlock()
		}(i, chunk)
	}

	wg.Wait()

	// Batches never dispatched because the context was canceled are folded
	// into the result so every input item is accounted for.
	if ctxErr != nil {
		for i := dispatched; i < len(chunks); i++ {
			records := make([]FailureRecord[T], 0, len(chunks[i]))
			for _, item := range chunks[i] {
				records = append(records, FailureRecord[T]{
					Item: item,
					Err:  fmt.Errorf("batch never dispatched: %w", ctxErr),
				})
			}
			failures[i] = records
			settled = append(settled, i)
		}
	}

	order := settled
	if opts.PreserveOrder {
		order = make([]int, 0, len(settled))
		for i := range chunks {
			if outputs[i] != nil || failures[i] != nil {
				order = append(order, i)
			}
		}
	}

	for _, idx := range order {
		result.Processed = append(result.Processed, outputs[idx]...)
		result.Failed = append(result.Failed, failures[idx]...)
	}

	result.TotalProcessed = len(result.Processed)
	result.TotalFailed = len(result.Failed)
	result.Duration = time.Since(start)
	if secs := result.Duration.Seconds(); secs > 0 {
		result.Throughput = float64(result.TotalProcessed) / secs
	}
	result.Halted = dispatched < len(chunks)

	e.logger.Info("batch processing finished",
		"total_processed", result.TotalProcessed,
		"total_failed", result.TotalFailed,
		"duration", result.Duration,
		"throughput", result.Throughput,
		"halted", result.Halted)

	return result, nil
}

// runBatch settles one batch: it consults the circuit breaker, drives the
// retry loop, runs the optional transaction callback, and records the
// outcome on the breaker. A breaker rejection does not count toward
// consecutive failures; only genuinely attempted batches do.
func (e *Engine[T, R]) runBatch(
	ctx context.Context,
	batchIndex int,
	chunk []T,
	fn ProcessFunc[T, R],
	driver *retryDriver[T, R],
	db *DatabaseOptions,
) ([]R, []FailureRecord[T], time.Duration, bool) {
	if !e.breaker.AllowAttempt() {
		e.logger.Warn("batch rejected, circuit open",
			"batch_index", batchIndex,
			"batch_len", len(chunk))
		return nil, failAll(chunk, ErrCircuitOpen, 0), 0, false
	}

	e.logger.Debug("batch started",
		"batch_index", batchIndex,
		"batch_len", len(chunk))

	start := time.Now()
	chunkOutputs, attempts, err := driver.run(ctx, batchIndex, chunk, fn, db)
	if err == nil && db != nil && db.TxCallback != nil {
		if cbErr := db.TxCallback(ctx); cbErr != nil {
			err = fmt.Errorf("transaction callback failed: %w", cbErr)
		}
	}
	duration := time.Since(start)

	if err != nil {
		e.breaker.RecordFailure()
		e.logger.Warn("batch failed",
			"batch_index", batchIndex,
			"batch_len", len(chunk),
			"attempts", attempts,
			"duration", duration,
			"error", err)
		return nil, failAll(chunk, err, attempts), duration, false
	}

	e.breaker.RecordSuccess()
	e.logger.Debug("batch settled",
		"batch_index", batchIndex,
		"batch_len", len(chunk),
		"attempts", attempts,
		"duration", duration)

	return chunkOutputs, nil, duration, true
}

// failAll builds one failure record per item of a fully failed batch.
func failAll[T any](chunk []T, err error, attempts int) []FailureRecord[T] {
	records := make([]FailureRecord[T], 0, len(chunk))
	for _, item := range chunk {
		records = append(records, FailureRecord[T]{Item: item, Err: err, Attempts: attempts})
	}
	return records
}
