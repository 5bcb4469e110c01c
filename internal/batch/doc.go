// Package batch provides a resilient, generic batch-processing engine.
//
// The engine splits a large item collection into fixed-size batches, runs
// them with bounded concurrency, retries failed batches with a fixed delay,
// trips a circuit breaker under sustained failure, and aggregates the
// outcome of every item into a single result. Partial success is a
// first-class, non-exceptional outcome: processing errors are folded into
// failure records rather than propagated past the engine boundary.
//
// The engine is agnostic to what an item represents. Storage-specific
// concerns (transaction boundaries, deadlock classification, isolation
// levels) are injected through DatabaseOptions and never interpreted here.
//
// Known limitation: a batch attempt that exceeds the configured timeout, or
// whose parent context is canceled mid-flight, is recorded as failed, but
// the engine cannot force-stop the underlying call.
// The attempt context carries a deadline, so processing functions that
// honor context cancellation will stop early; functions that ignore it keep
// running in the background.
package batch
