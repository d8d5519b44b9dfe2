// Package prometheus provides the Prometheus implementations of the metrics
// interfaces used by the core and the resource kinds.
package prometheus

import (
	"time"

	"github.com/marmos91/lazyhost/pkg/lazy"
	"github.com/marmos91/lazyhost/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func init() {
	metrics.RegisterLazyMetricsConstructor(func() lazy.Metrics {
		if m := NewLazyMetrics(); m != nil {
			return m
		}
		return nil
	})
}

// lazyMetrics is the Prometheus implementation of lazy.Metrics.
type lazyMetrics struct {
	initTotal       *prometheus.CounterVec
	initDuration    *prometheus.HistogramVec
	cleanupTotal    *prometheus.CounterVec
	cleanupDuration *prometheus.HistogramVec
	cleanupSkipped  *prometheus.CounterVec
	outstanding     prometheus.Gauge
}

var durationBuckets = []float64{
	0.1,   // 100us - plain values, in-memory stores
	1,     // 1ms
	10,    // 10ms
	50,    // 50ms - local databases
	100,   // 100ms
	500,   // 500ms - remote connections
	1000,  // 1s
	5000,  // 5s - graceful server shutdown
	30000, // 30s
}

// NewLazyMetrics creates a new Prometheus-backed lazy.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewLazyMetrics() *lazyMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &lazyMetrics{
		initTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lazyhost_member_init_total",
				Help: "Total number of member initializations by member and status",
			},
			[]string{"member", "status"}, // status: "success", "error"
		),
		initDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lazyhost_member_init_duration_milliseconds",
				Help:    "Duration of member initializers in milliseconds",
				Buckets: durationBuckets,
			},
			[]string{"member"},
		),
		cleanupTotal: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lazyhost_cleanup_total",
				Help: "Total number of cleanup actions run by cleanup name, mode and status",
			},
			[]string{"cleanup", "mode", "status"}, // mode: "sync", "async"
		),
		cleanupDuration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lazyhost_cleanup_duration_milliseconds",
				Help:    "Duration of cleanup actions in milliseconds, until completion for async ones",
				Buckets: durationBuckets,
			},
			[]string{"cleanup", "mode"},
		),
		cleanupSkipped: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lazyhost_cleanup_skipped_total",
				Help: "Total number of registry entries skipped because nothing could be called",
			},
			[]string{"cleanup"},
		),
		outstanding: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "lazyhost_cleanup_outstanding",
				Help: "Number of asynchronous cleanups dispatched and not yet completed",
			},
		),
	}
}

func (m *lazyMetrics) ObserveInit(member string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.initTotal.WithLabelValues(member, status(err)).Inc()
	m.initDuration.WithLabelValues(member).Observe(milliseconds(duration))
}

func (m *lazyMetrics) ObserveCleanup(name string, async bool, duration time.Duration, err error) {
	if m == nil {
		return
	}
	mode := "sync"
	if async {
		mode = "async"
	}
	m.cleanupTotal.WithLabelValues(name, mode, status(err)).Inc()
	m.cleanupDuration.WithLabelValues(name, mode).Observe(milliseconds(duration))
}

func (m *lazyMetrics) RecordCleanupSkipped(name string) {
	if m == nil {
		return
	}
	m.cleanupSkipped.WithLabelValues(name).Inc()
}

func (m *lazyMetrics) RecordOutstanding(count int) {
	if m == nil {
		return
	}
	m.outstanding.Set(float64(count))
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

func milliseconds(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000.0
}
