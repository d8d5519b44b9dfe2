package metrics

import "github.com/marmos91/lazyhost/pkg/lazy"

// NewLazyMetrics creates a Prometheus-backed lazy.Metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called) or if the
// prometheus implementation package is not linked. Pass the result straight
// to lazy.WithMetrics; a nil interface disables collection:
//
//	metrics.InitRegistry()
//	bind := lazy.On(host, lazy.WithMetrics(metrics.NewLazyMetrics()))
func NewLazyMetrics() lazy.Metrics {
	if !IsEnabled() || newPrometheusLazyMetrics == nil {
		return nil
	}
	m := newPrometheusLazyMetrics()
	if m == nil {
		return nil
	}
	return m
}

// newPrometheusLazyMetrics is set by pkg/metrics/prometheus.
// This indirection avoids import cycles while keeping the API clean
var newPrometheusLazyMetrics func() lazy.Metrics

// RegisterLazyMetricsConstructor registers the Prometheus lazy metrics constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterLazyMetricsConstructor(constructor func() lazy.Metrics) {
	newPrometheusLazyMetrics = constructor
}
