// Package metrics exposes workflow counters to Prometheus.
package metrics

import (
	"net/http"

	"sacco-workflow/internal/domain/loan"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sacco"

// Metrics keeps its collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	Transitions          *prometheus.CounterVec
	CollaboratorFailures *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "transitions_total",
			Help:      "Loan application state transitions.",
		}, []string{"from", "to"}),
		CollaboratorFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "workflow",
			Name:      "collaborator_failures_total",
			Help:      "Failed calls to the ledger and notification services.",
		}, []string{"collaborator", "operation"}),
	}
	m.registry.MustRegister(
		m.Transitions,
		m.CollaboratorFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Transition counts one state change. Creation is reported with an empty from.
func (m *Metrics) Transition(from, to loan.State) {
	f := string(from)
	if f == "" {
		f = "none"
	}
	m.Transitions.WithLabelValues(f, string(to)).Inc()
}

func (m *Metrics) CollaboratorFailure(collaborator, operation string) {
	m.CollaboratorFailures.WithLabelValues(collaborator, operation).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
