package prometheus

import (
	"github.com/marmos91/lazyhost/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BadgerMetrics is the Prometheus implementation for BadgerDB members.
type BadgerMetrics struct {
	size   *prometheus.GaugeVec
	opened *prometheus.CounterVec
}

// NewBadgerMetrics creates a new Prometheus-backed BadgerDB metrics instance.
//
// Returns nil if metrics are not enabled (InitRegistry not called). All
// methods are safe to call on a nil receiver.
func NewBadgerMetrics() *BadgerMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &BadgerMetrics{
		size: promauto.With(reg).NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "lazyhost_badger_size_bytes",
				Help: "On-disk size of a BadgerDB member by table type",
			},
			[]string{"member", "type"}, // "lsm", "vlog"
		),
		opened: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "lazyhost_badger_opened_total",
				Help: "Total number of BadgerDB members opened",
			},
			[]string{"member", "mode"}, // "disk", "memory"
		),
	}
}

// RecordSize records the LSM and value log sizes reported by badger.
func (m *BadgerMetrics) RecordSize(member string, lsm, vlog int64) {
	if m == nil {
		return
	}
	m.size.WithLabelValues(member, "lsm").Set(float64(lsm))
	m.size.WithLabelValues(member, "vlog").Set(float64(vlog))
}

// RecordOpen records a successful open.
func (m *BadgerMetrics) RecordOpen(member string, inMemory bool) {
	if m == nil {
		return
	}
	mode := "disk"
	if inMemory {
		mode = "memory"
	}
	m.opened.WithLabelValues(member, mode).Inc()
}
