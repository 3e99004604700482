package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the audit pack feature.
type Metrics struct {
	Generated          prometheus.Counter
	Failed             prometheus.Counter
	MarkedOutdated     prometheus.Counter
	GenerationDuration prometheus.Histogram
}

// New creates and registers the audit pack metrics.
func New() *Metrics {
	return &Metrics{
		Generated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "exportgate_audit_packs_generated_total",
			Help: "Audit packs generated and signed",
		}),
		Failed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "exportgate_audit_pack_failures_total",
			Help: "Audit pack generations that failed after starting",
		}),
		MarkedOutdated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "exportgate_audit_packs_outdated_total",
			Help: "Audit packs demoted to OUTDATED on shipment drift",
		}),
		GenerationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "exportgate_audit_pack_generation_duration_seconds",
			Help:    "Wall time of a full pack generation including signing",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveGenerated records one completed generation.
func (m *Metrics) ObserveGenerated(seconds float64) {
	m.Generated.Inc()
	m.GenerationDuration.Observe(seconds)
}

// IncFailed records one failed generation.
func (m *Metrics) IncFailed() {
	m.Failed.Inc()
}

// IncMarkedOutdated records one READY pack demoted on drift.
func (m *Metrics) IncMarkedOutdated() {
	m.MarkedOutdated.Inc()
}
