// Package metrics provides ingestion and persistence metrics for jsonc using
// Prometheus. All collectors register with the default registry.
//
// # Basic Usage
//
//	// Count shredded rows
//	metrics.RowsShredded.Inc()
//
//	// Track a phase
//	timer := metrics.NewTimer("shred")
//	shredAll(rows)
//	metrics.PhaseDuration.WithLabelValues("shred").Observe(timer.Stop().Seconds())
//
//	// Track throughput
//	tracker := metrics.NewThroughputTracker("shred")
//	for _, row := range rows {
//	    stripe.Push(row)
//	    tracker.Increment(1)
//	}
//	rowsPerSec := tracker.GetAndReset()
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsShredded counts top-level records pushed into stripes
	RowsShredded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jsonc_rows_shredded_total",
			Help: "Total number of records shredded into stripes",
		},
	)

	// ColumnsCreated counts columns created on first sight of a path
	ColumnsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jsonc_columns_created_total",
			Help: "Total number of columns created",
		},
	)

	// ColumnUpcasts counts column type changes.
	// Labels: from, to (column kinds such as int8, float, union)
	ColumnUpcasts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonc_column_upcasts_total",
			Help: "Total number of column type widenings",
		},
		[]string{"from", "to"},
	)

	// UnionConversions counts columns that fell back to the union type
	UnionConversions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "jsonc_union_conversions_total",
			Help: "Total number of columns converted to union",
		},
	)

	// CodecBytes counts stripe bytes written and read.
	// Labels: direction (encode/decode)
	CodecBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonc_codec_bytes_total",
			Help: "Total number of stripe bytes encoded or decoded",
		},
		[]string{"direction"},
	)

	// RecordsLoaded counts NDJSON lines read by the loader.
	// Labels: status (ok/error)
	RecordsLoaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonc_records_loaded_total",
			Help: "Total number of NDJSON records read",
		},
		[]string{"status"},
	)

	// StorageOperations counts blob store calls.
	// Labels: backend (local/s3/gcs), op (put/get), status (ok/not_found/error)
	StorageOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jsonc_storage_operations_total",
			Help: "Total number of stripe store operations",
		},
		[]string{"backend", "op", "status"},
	)

	// PhaseDuration tracks how long CLI phases take in seconds.
	// Labels: phase (load/shred/encode/decode/scan)
	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jsonc_phase_duration_seconds",
			Help:    "Duration of processing phases in seconds",
			Buckets: prometheus.ExponentialBuckets(0.0001, 10, 8),
		},
		[]string{"phase"},
	)

	// Throughput tracks records per second of the last measured phase
	Throughput = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "jsonc_throughput_records_per_second",
			Help: "Current throughput in records per second",
		},
		[]string{"phase"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Name returns the timer name
func (t *Timer) Name() string { return t.name }

// Stop returns the elapsed duration since creation. It may be called more
// than once.
func (t *Timer) Stop() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration stops the timer and records it in PhaseDuration under the
// timer name
func (t *Timer) ObserveDuration() time.Duration {
	d := t.Stop()
	PhaseDuration.WithLabelValues(t.name).Observe(d.Seconds())
	return d
}

// ThroughputTracker tracks records per second over time windows.
// Safe for concurrent use.
type ThroughputTracker struct {
	mu        sync.Mutex
	count     int64
	lastReset time.Time
	phase     string
}

// NewThroughputTracker creates a new throughput tracker for a phase
func NewThroughputTracker(phase string) *ThroughputTracker {
	return &ThroughputTracker{
		lastReset: time.Now(),
		phase:     phase,
	}
}

// Increment adds n to the record count
func (t *ThroughputTracker) Increment(n int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.count += n
}

// GetAndReset calculates the current throughput, updates the gauge, resets
// the counter and returns the throughput.
func (t *ThroughputTracker) GetAndReset() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed := time.Since(t.lastReset).Seconds()
	if elapsed == 0 {
		return 0
	}

	throughput := float64(t.count) / elapsed

	t.count = 0
	t.lastReset = time.Now()

	Throughput.WithLabelValues(t.phase).Set(throughput)

	return throughput
}
