package prometheus

import (
	"time"

	"github.com/marmos91/lazyhost/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// S3Metrics is the Prometheus implementation for S3 client members.
type S3Metrics struct {
	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
}

// NewS3Metrics creates a new Prometheus-backed S3 metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewS3Metrics() *S3Metrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &S3Metrics{
		operationsTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lazyhost_s3_operations_total",
				Help: "Total number of S3 operations by member, operation and status",
			},
			[]string{"member", "operation", "status"},
		),
		operationDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "lazyhost_s3_operation_duration_milliseconds",
				Help: "Duration of S3 operations in milliseconds",
				Buckets: []float64{
					10,    // 10ms - fast metadata operations
					50,    // 50ms
					100,   // 100ms
					500,   // 500ms
					1000,  // 1s
					5000,  // 5s - slow or distant endpoints
					30000, // 30s
				},
			},
			[]string{"member", "operation"},
		),
	}
}

// ObserveOperation records an S3 operation with its duration and outcome.
func (m *S3Metrics) ObserveOperation(member, operation string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(member, operation, status(err)).Inc()
	m.operationDuration.WithLabelValues(member, operation).Observe(milliseconds(duration))
}
