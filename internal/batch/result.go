package batch

import "time"

// FailureRecord describes one item that never succeeded: it exhausted its
// retries, belonged to a batch rejected while the circuit breaker was open,
// or was never dispatched because processing halted.
type FailureRecord[T any] struct {
	// Item is the original input item.
	Item T

	// Err is the captured error from the final attempt, or ErrCircuitOpen
	// for breaker rejections.
	Err error

	// Attempts is the number of attempts made for the item's batch.
	// Zero for batches that were never attempted.
	Attempts int
}

// Result is the aggregate outcome of one Process call. It is produced fresh
// per call and owned by the caller after return.
type Result[T, R any] struct {
	// Processed holds the successful outputs, in original item order when
	// PreserveOrder was requested, otherwise in completion order.
	Processed []R

	// Failed holds one record per item that never succeeded.
	Failed []FailureRecord[T]

	// TotalProcessed is len(Processed).
	TotalProcessed int

	// TotalFailed is len(Failed).
	TotalFailed int

	// Duration is the wall-clock time from dispatch start to the last
	// batch settlement.
	Duration time.Duration

	// Throughput is successfully processed items per second for this call.
	Throughput float64

	// Halted reports that dispatching stopped before all batches ran,
	// either because ContinueOnError was false and a batch failed, or
	// because the context was canceled.
	Halted bool
}

// ConditionalResult is the outcome of ProcessConditional: the ordinary
// batch result for items passing the predicate, plus the items that were
// skipped verbatim.
type ConditionalResult[T, R any] struct {
	Result  *Result[T, R]
	Skipped []T
}
