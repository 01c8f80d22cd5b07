// Package metrics holds the Prometheus collectors shared by the services.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "zsalon"

// Outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	generationCalls    *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	promptsRejected    prometheus.Counter
	dialoguePairs      prometheus.Counter
	dialogueRuns       *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry together
// with the Go runtime and process collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		generationCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generation_calls_total",
			Help:      "Calls issued to the external generation service.",
		}, []string{"operation", "outcome"}),
		generationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "generation_duration_seconds",
			Help:      "Latency of calls to the external generation service.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"operation"}),
		promptsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompts_rejected_total",
			Help:      "Prompts rejected by the sensitive-data filter.",
		}),
		dialoguePairs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_turn_pairs_total",
			Help:      "Turn pairs emitted by the dialogue simulator.",
		}),
		dialogueRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dialogue_runs_total",
			Help:      "Dialogue simulations by outcome.",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.generationCalls,
		m.generationDuration,
		m.promptsRejected,
		m.dialoguePairs,
		m.dialogueRuns,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the underlying Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

// ObserveGeneration records one generation call.
func (m *Metrics) ObserveGeneration(operation string, started time.Time, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.generationCalls.WithLabelValues(operation, outcome).Inc()
	m.generationDuration.WithLabelValues(operation).Observe(time.Since(started).Seconds())
}

// PromptRejected counts a filtered prompt.
func (m *Metrics) PromptRejected() {
	if m == nil {
		return
	}
	m.promptsRejected.Inc()
}

// DialoguePair counts an emitted turn pair.
func (m *Metrics) DialoguePair() {
	if m == nil {
		return
	}
	m.dialoguePairs.Inc()
}

// DialogueRun records the outcome of a simulation.
func (m *Metrics) DialogueRun(err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.dialogueRuns.WithLabelValues(outcome).Inc()
}
