// Package metrics provides Prometheus metrics for ingestion and question
// answering.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "rag"

// Metrics holds all Prometheus metrics. Each instance owns its registry so
// several can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	IngestTotal    *prometheus.CounterVec
	IngestDuration prometheus.Histogram
	ChunksIndexed  prometheus.Counter

	AskTotal         *prometheus.CounterVec
	AskDuration      prometheus.Histogram
	RetrievedSources prometheus.Histogram

	RequestsTotal *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		IngestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_total",
			Help:      "Total number of page ingestions by status",
		}, []string{"status"}),
		IngestDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_duration_seconds",
			Help:      "Duration of page ingestion in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~51s
		}),
		ChunksIndexed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chunks_indexed_total",
			Help:      "Total number of chunks written to the vector store",
		}),
		AskTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ask_total",
			Help:      "Total number of answered questions by status",
		}, []string{"status"}),
		AskDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ask_duration_seconds",
			Help:      "Duration of question answering in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		}),
		RetrievedSources: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retrieved_sources",
			Help:      "Number of chunks passed to the model per question",
			Buckets:   []float64{0, 1, 2, 3, 5, 10},
		}),
		RequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "code"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) ObserveIngest(d time.Duration, chunks int, err error) {
	m.IngestTotal.WithLabelValues(status(err)).Inc()
	m.IngestDuration.Observe(d.Seconds())
	if err == nil {
		m.ChunksIndexed.Add(float64(chunks))
	}
}

func (m *Metrics) ObserveAsk(d time.Duration, sources int, err error) {
	m.AskTotal.WithLabelValues(status(err)).Inc()
	m.AskDuration.Observe(d.Seconds())
	if err == nil {
		m.RetrievedSources.Observe(float64(sources))
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
