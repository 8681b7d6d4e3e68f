// Package metrics provides blob store metrics for observability
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// BlobStoreMetrics contains Prometheus metrics for object storage operations
type BlobStoreMetrics struct {
	registry *prometheus.Registry

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	objectSizeBytes   *prometheus.HistogramVec

	collectors []prometheus.Collector
}

// NewBlobStoreMetrics creates and registers new blob store metrics
func NewBlobStoreMetrics(registry *prometheus.Registry) (*BlobStoreMetrics, error) {
	m := &BlobStoreMetrics{registry: registry}
	if err := m.initMetrics(); err != nil {
		return nil, err
	}
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// initMetrics initializes all Prometheus metrics
func (m *BlobStoreMetrics) initMetrics() error {
	m.operationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "blobstore_operations_total",
			Help: "Total number of object storage operations",
		},
		[]string{"driver", "operation", "status"}, // operation: put, get, head, delete, list, presign
	)

	m.operationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blobstore_operation_duration_seconds",
			Help:    "Time taken for object storage operations",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor2, BucketCount15), // 1ms to ~32s
		},
		[]string{"driver", "operation"},
	)

	m.objectSizeBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "blobstore_object_size_bytes",
			Help:    "Size of objects written to or read from the store",
			Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor2, BucketCount20), // 1KB to ~1GB
		},
		[]string{"driver", "operation"},
	)

	m.collectors = []prometheus.Collector{
		m.operationsTotal,
		m.operationDuration,
		m.objectSizeBytes,
	}

	return nil
}

// Describe implements the Collector interface
func (m *BlobStoreMetrics) Describe(ch chan<- *prometheus.Desc) {
	for _, collector := range m.collectors {
		collector.Describe(ch)
	}
}

// Collect implements the Collector interface
func (m *BlobStoreMetrics) Collect(ch chan<- prometheus.Metric) {
	for _, collector := range m.collectors {
		collector.Collect(ch)
	}
}

// RecordOperation records an object storage operation
func (m *BlobStoreMetrics) RecordOperation(driver, operation, status string) {
	m.operationsTotal.WithLabelValues(driver, operation, status).Inc()
}

// RecordOperationDuration records the duration of an object storage operation
func (m *BlobStoreMetrics) RecordOperationDuration(driver, operation string, duration float64) {
	m.operationDuration.WithLabelValues(driver, operation).Observe(duration)
}

// RecordObjectSize records the size of a transferred object
func (m *BlobStoreMetrics) RecordObjectSize(driver, operation string, sizeBytes int64) {
	m.objectSizeBytes.WithLabelValues(driver, operation).Observe(float64(sizeBytes))
}
