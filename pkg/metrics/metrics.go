// Package metrics exposes Prometheus instrumentation for conversation runs.
// It bridges the engine's observation hooks onto a self-contained registry,
// so wiring it up is two calls: pass Hooks() to the runner (or hub) and
// mount Handler() on an HTTP mux.
package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	prompta "github.com/synzen/prompt-anything-sub000"
)

// Metrics holds the collectors for one engine instance. Each Metrics owns
// its own registry, so several instances can coexist in a process.
type Metrics struct {
	registry *prometheus.Registry

	visits   *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
	active   prometheus.Gauge
}

// New creates a Metrics with all collectors registered.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		visits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prompta_prompt_visits_total",
				Help: "Total prompt visits, counted when a step's visuals are sent.",
			},
			[]string{"prompt"},
		),
		outcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "prompta_prompt_outcomes_total",
				Help: "Collect cycle outcomes by prompt, including each rejection.",
			},
			[]string{"prompt", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "prompta_prompt_duration_seconds",
				Help: "Time from a prompt's send to its terminal outcome.",
			},
			[]string{"prompt"},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "prompta_active_runs",
				Help: "Number of conversation runs currently executing.",
			},
		),
	}
	m.registry.MustRegister(m.visits, m.outcomes, m.duration, m.active)
	return m
}

// Hooks returns engine hooks that record visits, outcomes and cycle
// durations. Rejection events count toward outcomes but not duration;
// the histogram only observes terminal resolutions.
func (m *Metrics) Hooks() prompta.Hooks {
	return prompta.Hooks{
		OnSend: func(_ context.Context, e *prompta.SendEvent) {
			m.visits.WithLabelValues(e.Prompt).Inc()
		},
		OnResolve: func(_ context.Context, e *prompta.ResolveEvent) {
			m.outcomes.WithLabelValues(e.Prompt, string(e.Outcome)).Inc()
			if e.Outcome != prompta.OutcomeReject {
				m.duration.WithLabelValues(e.Prompt).Observe(e.Elapsed.Seconds())
			}
		},
	}
}

// RunStarted bumps the active-run gauge. Call it when a run launches.
func (m *Metrics) RunStarted() { m.active.Inc() }

// RunEnded decrements the active-run gauge. Call it when a run finishes,
// whatever the outcome.
func (m *Metrics) RunEnded() { m.active.Dec() }

// Registry exposes the underlying registry for callers that gather
// metrics themselves.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
