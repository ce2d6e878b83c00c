// metrics.go - Metrics collection for the holographic tracking daemon
package main

import (
	"fmt"
	"sync"
	"time"
)

// MetricsCollector aggregates counters, gauges and histograms for one run.
type MetricsCollector struct {
	mu         sync.RWMutex
	counters   map[string]int64
	gauges     map[string]float64
	histograms map[string][]float64
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		counters:   make(map[string]int64),
		gauges:     make(map[string]float64),
		histograms: make(map[string][]float64),
	}
}

// IncrementCounter increments a counter metric
func (mc *MetricsCollector) IncrementCounter(name string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters[name]++
}

// SetGauge sets a gauge metric value
func (mc *MetricsCollector) SetGauge(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.gauges[name] = value
}

// RecordHistogram records a value in a histogram
func (mc *MetricsCollector) RecordHistogram(name string, value float64) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	values := append(mc.histograms[name], value)
	// Keep only last 1000 values for memory efficiency
	if len(values) > 1000 {
		values = values[len(values)-1000:]
	}
	mc.histograms[name] = values
}

// GetCounter returns the current value of a counter
func (mc *MetricsCollector) GetCounter(name string) int64 {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.counters[name]
}

// GetMetricsSummary returns a summary of all metrics
func (mc *MetricsCollector) GetMetricsSummary() map[string]interface{} {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	summary := make(map[string]interface{})

	counters := make(map[string]int64, len(mc.counters))
	for name, value := range mc.counters {
		counters[name] = value
	}
	summary["counters"] = counters

	gauges := make(map[string]float64, len(mc.gauges))
	for name, value := range mc.gauges {
		gauges[name] = value
	}
	summary["gauges"] = gauges

	histograms := make(map[string]map[string]float64)
	for name, values := range mc.histograms {
		if len(values) == 0 {
			continue
		}
		h := map[string]float64{
			"count": float64(len(values)),
			"min":   values[0],
			"max":   values[0],
			"sum":   0,
		}
		for _, v := range values {
			if v < h["min"] {
				h["min"] = v
			}
			if v > h["max"] {
				h["max"] = v
			}
			h["sum"] += v
		}
		h["avg"] = h["sum"] / h["count"]
		histograms[name] = h
	}
	summary["histograms"] = histograms

	return summary
}

// Reset resets all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	mc.counters = make(map[string]int64)
	mc.gauges = make(map[string]float64)
	mc.histograms = make(map[string][]float64)
}

// Predefined metric names
const (
	MetricUpdateCount        = "update_count"
	MetricSnapshotCount      = "snapshot_count"
	MetricMergeCount         = "merge_count"
	MetricStateMismatchCount = "state_mismatch_count"
	MetricRateLimitedCount   = "rate_limited_count"
	MetricErrorCount         = "error_count"
	MetricOpCount            = "op_count"
	MetricSegmentDepth       = "segment_depth"
	MetricUpdateTime         = "update_time"
	MetricPrimeDeriveTime    = "prime_derive_time"
	MetricAttestTime         = "attest_time"
)

// Convenience methods for common metrics
func (mc *MetricsCollector) RecordUpdate(duration time.Duration) {
	mc.IncrementCounter(MetricUpdateCount)
	mc.RecordHistogram(MetricUpdateTime, duration.Seconds())
}

func (mc *MetricsCollector) RecordSnapshot() {
	mc.IncrementCounter(MetricSnapshotCount)
}

func (mc *MetricsCollector) RecordStateMismatch() {
	mc.IncrementCounter(MetricStateMismatchCount)
}

func (mc *MetricsCollector) RecordError(errorType string) {
	mc.IncrementCounter(fmt.Sprintf("%s_%s", MetricErrorCount, errorType))
}
