// Package metrics exposes Prometheus collectors for the household state pipeline.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "foyer"

// Outcomes of a mutating operation.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultMiss     = "miss"
)

// Metrics groups every collector of the state pipeline.
type Metrics struct {
	Mutations          *prometheus.CounterVec
	ValidationFailures *prometheus.CounterVec
	Writes             *prometheus.CounterVec
	SkippedWrites      *prometheus.CounterVec
	PersistFailures    *prometheus.CounterVec
	Ratios             *prometheus.GaugeVec
	HistorySamples     prometheus.Gauge
	UnsavedChanges     prometheus.Gauge
}

// New creates the collectors and registers them with reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mutations_total",
			Help:      "Mutating operations by operation and result.",
		}, []string{"operation", "result"}),
		ValidationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Rejected user inputs by field.",
		}, []string{"field"}),
		Writes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_writes_total",
			Help:      "Successful storage writes by key.",
		}, []string{"key"}),
		SkippedWrites: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_skipped_writes_total",
			Help:      "Writes skipped because the stored value was already up to date.",
		}, []string{"key"}),
		PersistFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_write_failures_total",
			Help:      "Failed storage writes by key and reason.",
		}, []string{"key", "reason"}),
		Ratios: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "user_ratio",
			Help:      "Share of the common bill of each member.",
		}, []string{"user_id"}),
		HistorySamples: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "history_samples",
			Help:      "Number of samples in the budget history.",
		}),
		UnsavedChanges: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "unsaved_changes",
			Help:      "Writes since the last export.",
		}),
	}
}

// Mutation counts one operation outcome.
func (m *Metrics) Mutation(operation, result string) {
	m.Mutations.WithLabelValues(operation, result).Inc()
}

// SetRatios replaces the ratio gauges with the given user ID to ratio map.
func (m *Metrics) SetRatios(ratios map[string]float64) {
	m.Ratios.Reset()
	for id, ratio := range ratios {
		m.Ratios.WithLabelValues(id).Set(ratio)
	}
}

// Handler serves the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
