package batch

import "errors"

// Common errors returned by the batch engine.
var (
	// ErrInvalidConfig is returned when the engine configuration fails
	// validation. Configuration errors are rejected before any work starts
	// and never touch the circuit breaker or metrics.
	ErrInvalidConfig = errors.New("invalid batch configuration")

	// ErrInvalidChunkSize is returned by Chunk when the requested chunk
	// size is less than 1.
	ErrInvalidChunkSize = errors.New("chunk size must be at least 1")

	// ErrNilProcessFunc is returned when a processing function is not
	// supplied to a Process call.
	ErrNilProcessFunc = errors.New("processing function cannot be nil")

	// ErrNilPredicate is returned by ProcessConditional when no predicate
	// is supplied.
	ErrNilPredicate = errors.New("predicate cannot be nil")

	// ErrCircuitOpen marks failure records for batches rejected while the
	// circuit breaker was open. The processing function is never invoked
	// for these batches.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrAttemptTimeout marks a batch attempt that exceeded the configured
	// per-attempt timeout.
	ErrAttemptTimeout = errors.New("batch attempt timed out")

	// ErrOutputMismatch is returned when the processing function succeeds
	// but its outputs do not align 1:1 with the input batch. The batch is
	// treated as failed and retried per policy.
	ErrOutputMismatch = errors.New("processing function returned misaligned outputs")

	// ErrProcessPanic marks a batch attempt whose processing function
	// panicked. The panic is recovered and folded into the batch failure.
	ErrProcessPanic = errors.New("processing function panicked")
)
