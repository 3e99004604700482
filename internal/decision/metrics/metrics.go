package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for the decision feature.
type Metrics struct {
	Evaluations        *prometheus.CounterVec
	Overrides          prometheus.Counter
	EvaluationDuration prometheus.Histogram
}

// New creates and registers the decision metrics.
func New() *Metrics {
	return &Metrics{
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "exportgate_decisions_total",
			Help: "Compliance decisions produced, by verdict",
		}, []string{"decision"}),
		Overrides: promauto.NewCounter(prometheus.CounterOpts{
			Name: "exportgate_overrides_total",
			Help: "Compliance overrides applied",
		}),
		EvaluationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "exportgate_evaluation_duration_seconds",
			Help:    "Wall time of a full shipment evaluation",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveDecision records one produced decision.
func (m *Metrics) ObserveDecision(decision string, seconds float64) {
	m.Evaluations.WithLabelValues(decision).Inc()
	m.EvaluationDuration.Observe(seconds)
}

// IncOverrides records one applied override.
func (m *Metrics) IncOverrides() {
	m.Overrides.Inc()
}
