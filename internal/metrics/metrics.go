// Package metrics exposes Prometheus collectors for indexing, question
// answering and HTTP traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "docqa"

// Outcome labels
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds every collector on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	IndexBuilds        *prometheus.CounterVec
	IndexBuildDuration prometheus.Histogram
	ChunksIndexed      prometheus.Histogram
	Questions          *prometheus.CounterVec
	AnswerDuration     prometheus.Histogram
	HTTPRequests       *prometheus.CounterVec
	HTTPDuration       *prometheus.HistogramVec
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		IndexBuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "index_builds_total",
			Help:      "Document index builds by outcome and error code.",
		}, []string{"outcome", "code"}),
		IndexBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_build_duration_seconds",
			Help:      "Time from download to an installed index.",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		ChunksIndexed: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "index_chunks",
			Help:      "Number of chunks per built index.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}),
		Questions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "questions_total",
			Help:      "Questions asked by outcome and error code.",
		}, []string{"outcome", "code"}),
		AnswerDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "answer_duration_seconds",
			Help:      "Retrieval plus generation latency.",
			Buckets:   prometheus.DefBuckets,
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.IndexBuilds,
		m.IndexBuildDuration,
		m.ChunksIndexed,
		m.Questions,
		m.AnswerDuration,
		m.HTTPRequests,
		m.HTTPDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveBuild records one index build. code is empty on success.
func (m *Metrics) ObserveBuild(started time.Time, chunks int, code string) {
	if m == nil {
		return
	}
	m.IndexBuildDuration.Observe(time.Since(started).Seconds())
	if code != "" {
		m.IndexBuilds.WithLabelValues(OutcomeError, code).Inc()
		return
	}
	m.IndexBuilds.WithLabelValues(OutcomeSuccess, "").Inc()
	m.ChunksIndexed.Observe(float64(chunks))
}

// ObserveQuestion records one answered or failed question.
func (m *Metrics) ObserveQuestion(started time.Time, code string) {
	if m == nil {
		return
	}
	m.AnswerDuration.Observe(time.Since(started).Seconds())
	if code != "" {
		m.Questions.WithLabelValues(OutcomeError, code).Inc()
		return
	}
	m.Questions.WithLabelValues(OutcomeSuccess, "").Inc()
}
