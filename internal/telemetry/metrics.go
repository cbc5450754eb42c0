package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the assistant's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry      *prometheus.Registry
	answers       *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	webSearches   *prometheus.CounterVec
	indexedChunks prometheus.Gauge
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		answers: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_answers_total",
				Help: "Answers given, by where the answer came from",
			},
			[]string{"source"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "assistant_stage_duration_seconds",
				Help:    "Duration of retrieval, generation and web search stages",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"stage"},
		),
		webSearches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "assistant_web_searches_total",
				Help: "Web searches issued, by status",
			},
			[]string{"status"},
		),
		indexedChunks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "assistant_indexed_chunks",
			Help: "Number of chunks in the document index",
		}),
	}
}

func (m *Metrics) ObserveAnswer(source string) {
	if m == nil {
		return
	}
	m.answers.WithLabelValues(source).Inc()
}

func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

func (m *Metrics) ObserveWebSearch(status string) {
	if m == nil {
		return
	}
	m.webSearches.WithLabelValues(status).Inc()
}

func (m *Metrics) SetIndexedChunks(n int) {
	if m == nil {
		return
	}
	m.indexedChunks.Set(float64(n))
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
