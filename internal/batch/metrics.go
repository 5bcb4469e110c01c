package batch

import (
	"sync"
	"time"
)

// Metrics accumulates process-wide statistics across every batch the engine
// settles. It is created at engine construction, updated after each batch
// completes (success or exhausted failure), and explicitly resettable. It is
// never persisted; all counters are lost on process restart.
//
// All methods are safe for concurrent use.
type Metrics struct {
	mu sync.Mutex

	totalBatches   int64
	totalItems     int64
	succeededItems int64
	totalTime      time.Duration
	peakThroughput float64
}

// MetricsSnapshot is an immutable copy of the engine metrics at one point
// in time.
type MetricsSnapshot struct {
	TotalBatches          int64         `json:"total_batches"`
	TotalItems            int64         `json:"total_items"`
	SuccessRate           float64       `json:"success_rate"`
	AverageBatchSize      float64       `json:"average_batch_size"`
	AverageProcessingTime time.Duration `json:"average_processing_time"`
	PeakThroughput        float64       `json:"peak_throughput"`
}

// NewMetrics creates an empty metrics accumulator.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// recordBatch folds one settled batch into the running aggregates.
// succeeded is the number of items in the batch that processed
// successfully (0 for a fully failed or rejected batch).
func (m *Metrics) recordBatch(batchSize, succeeded int, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalBatches++
	m.totalItems += int64(batchSize)
	m.succeededItems += int64(succeeded)
	m.totalTime += duration

	if secs := duration.Seconds(); secs > 0 && succeeded > 0 {
		if throughput := float64(succeeded) / secs; throughput > m.peakThroughput {
			m.peakThroughput = throughput
		}
	}
}

// Snapshot returns a copy of the current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := MetricsSnapshot{
		TotalBatches:   m.totalBatches,
		TotalItems:     m.totalItems,
		PeakThroughput: m.peakThroughput,
	}

	if m.totalItems > 0 {
		snap.SuccessRate = float64(m.succeededItems) / float64(m.totalItems)
	}
	if m.totalBatches > 0 {
		snap.AverageBatchSize = float64(m.totalItems) / float64(m.totalBatches)
		snap.AverageProcessingTime = m.totalTime / time.Duration(m.totalBatches)
	}

	return snap
}

// Reset zeroes all counters. Circuit-breaker state is owned elsewhere and
// is deliberately unaffected.
func (m *Metrics) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalBatches = 0
	m.totalItems = 0
	m.succeededItems = 0
	m.totalTime = 0
	m.peakThroughput = 0
}
