// Package metrics bridges the batch engine's process-wide metrics into
// Prometheus. The engine owns its counters; this collector reads a snapshot
// at scrape time, so nothing is double-accounted and nothing is persisted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/phrazzld/scry-batch/internal/batch"
)

// SnapshotFunc supplies the current engine metrics at scrape time.
type SnapshotFunc func() batch.MetricsSnapshot

// EngineCollector implements prometheus.Collector over an engine snapshot.
type EngineCollector struct {
	snapshot SnapshotFunc

	totalBatches   *prometheus.Desc
	totalItems     *prometheus.Desc
	successRate    *prometheus.Desc
	avgBatchSize   *prometheus.Desc
	avgProcessTime *prometheus.Desc
	peakThroughput *prometheus.Desc
}

// NewEngineCollector creates a collector that reads engine metrics through
// snapshot on every scrape.
func NewEngineCollector(snapshot SnapshotFunc) *EngineCollector {
	return &EngineCollector{
		snapshot: snapshot,
		totalBatches: prometheus.NewDesc(
			"scry_batch_batches_total",
			"Total batches settled by the engine",
			nil, nil,
		),
		totalItems: prometheus.NewDesc(
			"scry_batch_items_total",
			"Total items settled by the engine",
			nil, nil,
		),
		successRate: prometheus.NewDesc(
			"scry_batch_success_rate",
			"Fraction of settled items that processed successfully",
			nil, nil,
		),
		avgBatchSize: prometheus.NewDesc(
			"scry_batch_average_batch_size",
			"Average number of items per settled batch",
			nil, nil,
		),
		avgProcessTime: prometheus.NewDesc(
			"scry_batch_average_processing_seconds",
			"Average wall-clock processing time per batch in seconds",
			nil, nil,
		),
		peakThroughput: prometheus.NewDesc(
			"scry_batch_peak_throughput",
			"Highest per-batch successful items per second observed",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *EngineCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalBatches
	ch <- c.totalItems
	ch <- c.successRate
	ch <- c.avgBatchSize
	ch <- c.avgProcessTime
	ch <- c.peakThroughput
}

// Collect implements prometheus.Collector.
func (c *EngineCollector) Collect(ch chan<- prometheus.Metric) {
	snap := c.snapshot()

	ch <- prometheus.MustNewConstMetric(
		c.totalBatches, prometheus.CounterValue, float64(snap.TotalBatches))
	ch <- prometheus.MustNewConstMetric(
		c.totalItems, prometheus.CounterValue, float64(snap.TotalItems))
	ch <- prometheus.MustNewConstMetric(
		c.successRate, prometheus.GaugeValue, snap.SuccessRate)
	ch <- prometheus.MustNewConstMetric(
		c.avgBatchSize, prometheus.GaugeValue, snap.AverageBatchSize)
	ch <- prometheus.MustNewConstMetric(
		c.avgProcessTime, prometheus.GaugeValue, snap.AverageProcessingTime.Seconds())
	ch <- prometheus.MustNewConstMetric(
		c.peakThroughput, prometheus.GaugeValue, snap.PeakThroughput)
}
