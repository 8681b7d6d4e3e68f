// Package metrics provides account clone metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// CloneMetrics contains Prometheus metrics for the account clone engine
type CloneMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec

	rowsCopiedTotal  *prometheus.CounterVec
	rowsDeletedTotal *prometheus.CounterVec

	blobBytesCopiedTotal prometheus.Counter
	blobsCopiedTotal     prometheus.Counter

	compensationDeletesTotal *prometheus.CounterVec

	collectors []prometheus.Collector
}

// NewCloneMetrics creates and registers new clone metrics
func NewCloneMetrics(registry *prometheus.Registry) (*CloneMetrics, error) {
	m := &CloneMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *CloneMetrics) initMetrics() error {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clone_operations_total",
			Help: "Total number of account clone operations",
		},
		[]string{"operation", "status"}, // operation: preview, execute; status: success, committed, rolled_back, rejected
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "clone_operation_duration_seconds",
			Help:    "Time taken for account clone operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~40s
		},
		[]string{"operation"},
	)

	m.rowsCopiedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clone_rows_copied_total",
			Help: "Total number of rows copied into target accounts",
		},
		[]string{"kind"},
	)

	m.rowsDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clone_rows_deleted_total",
			Help: "Total number of rows deleted from target accounts",
		},
		[]string{"kind"},
	)

	m.blobBytesCopiedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clone_blob_bytes_copied_total",
		Help: "Total bytes of image objects duplicated during clone operations",
	})

	m.blobsCopiedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "clone_blobs_copied_total",
		Help: "Total number of image objects duplicated during clone operations",
	})

	m.compensationDeletesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "clone_compensation_deletes_total",
			Help: "Total number of blob deletions performed while compensating failed clone runs",
		},
		[]string{"status"}, // status: success, error
	)

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.rowsCopiedTotal,
		m.rowsDeletedTotal,
		m.blobBytesCopiedTotal,
		m.blobsCopiedTotal,
		m.compensationDeletesTotal,
	}

	return nil
}

// Describe implements the Collector interface
func (m *CloneMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *CloneMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records a clone operation outcome
func (m *CloneMetrics) RecordOperation(operation, status string) {
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

// RecordOperationDuration records the duration of a clone operation
func (m *CloneMetrics) RecordOperationDuration(operation string, duration float64) {
	m.operationDuration.WithLabelValues(operation).Observe(duration)
}

// RecordRowsCopied records rows copied for an entity kind
func (m *CloneMetrics) RecordRowsCopied(kind string, count int) {
	m.rowsCopiedTotal.WithLabelValues(kind).Add(float64(count))
}

// RecordRowsDeleted records rows deleted for an entity kind
func (m *CloneMetrics) RecordRowsDeleted(kind string, count int) {
	m.rowsDeletedTotal.WithLabelValues(kind).Add(float64(count))
}

// RecordBlobCopied records one duplicated blob and its size
func (m *CloneMetrics) RecordBlobCopied(sizeBytes int64) {
	m.blobsCopiedTotal.Inc()
	m.blobBytesCopiedTotal.Add(float64(sizeBytes))
}

// RecordCompensationDelete records a compensating blob deletion attempt
func (m *CloneMetrics) RecordCompensationDelete(status string) {
	m.compensationDeletesTotal.WithLabelValues(status).Inc()
}
