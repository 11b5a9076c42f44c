// Package metrics exposes tier-level cache observations to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/avatarctic/tiered-cache/go/internal/core/ports"
)

// CacheMetrics implements ports.CacheMetrics.
type CacheMetrics struct {
	lookups      *prometheus.CounterVec
	tierErrors   *prometheus.CounterVec
	localEntries prometheus.Gauge
}

// NewCacheMetrics creates the collectors and registers them with reg.
func NewCacheMetrics(reg prometheus.Registerer) *CacheMetrics {
	m := &CacheMetrics{
		lookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiercache_lookups_total",
				Help: "Cache lookups by answering tier and outcome",
			},
			[]string{"tier", "outcome"},
		),
		tierErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tiercache_tier_errors_total",
				Help: "Recoverable remote tier failures by tier and operation",
			},
			[]string{"tier", "op"},
		),
		localEntries: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "tiercache_local_entries",
				Help: "Entries currently held by the in-process tier",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.lookups, m.tierErrors, m.localEntries)
	}
	return m
}

func (m *CacheMetrics) ObserveLookup(tier, outcome string) {
	m.lookups.WithLabelValues(tier, outcome).Inc()
}

func (m *CacheMetrics) ObserveTierError(tier, op string) {
	m.tierErrors.WithLabelValues(tier, op).Inc()
}

func (m *CacheMetrics) SetLocalEntries(n int) {
	m.localEntries.Set(float64(n))
}

var _ ports.CacheMetrics = (*CacheMetrics)(nil)
