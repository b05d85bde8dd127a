// Package metrics provides Prometheus instrumentation for the query
// pipeline. The registry is explicitly scoped rather than the global
// default so tests can construct isolated instances per test case.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	QueriesTotal        prometheus.Counter
	StageTotal          *prometheus.CounterVec
	StageDuration       *prometheus.HistogramVec
	ErrorsTotal         *prometheus.CounterVec
	GuardrailRejections *prometheus.CounterVec
	HallucinationFlags  prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,

		QueriesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shoprag",
			Name:      "queries_total",
			Help:      "Total number of query pipeline invocations",
		}),
		StageTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shoprag",
			Name:      "stage_total",
			Help:      "Pipeline stage executions by outcome",
		}, []string{"stage", "status"}),
		StageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shoprag",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shoprag",
			Name:      "errors_total",
			Help:      "Total number of pipeline errors by kind",
		}, []string{"stage", "kind"}),
		GuardrailRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shoprag",
			Name:      "guardrail_rejections_total",
			Help:      "Total number of input guardrail rejections",
		}, []string{"kind"}),
		HallucinationFlags: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "shoprag",
			Name:      "hallucination_flags_total",
			Help:      "Total number of answers flagged by the output guardrail",
		}),
	}
}

// ObserveStage records one stage execution. Updates are fire-and-forget
// single increments; they never fail the pipeline.
func (m *Metrics) ObserveStage(stage, status string, elapsed time.Duration) {
	m.StageTotal.WithLabelValues(stage, status).Inc()
	m.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RecordError counts a classified pipeline failure.
func (m *Metrics) RecordError(stage, kind string) {
	m.ErrorsTotal.WithLabelValues(stage, kind).Inc()
}

// RecordRejection counts a guardrail rejection.
func (m *Metrics) RecordRejection(kind string) {
	m.GuardrailRejections.WithLabelValues(kind).Inc()
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
