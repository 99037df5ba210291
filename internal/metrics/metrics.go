// Package metrics holds the Prometheus collectors for question answering and indexing.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Question outcomes.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeError   = "error"
)

// Pipeline and indexing stages.
const (
	StageFetch    = "fetch"
	StageIndex    = "index"
	StageEmbed    = "embed"
	StageSearch   = "search"
	StageGenerate = "generate"
)

// Cache events.
const (
	CacheHit      = "hit"
	CacheMiss     = "miss"
	CacheMismatch = "mismatch"
	CacheRebuild  = "rebuild"
	CacheSave     = "save"
)

// Metrics owns a private registry so tests and multiple instances do not collide.
type Metrics struct {
	registry      *prometheus.Registry
	questions     *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	corpusChunks  prometheus.Gauge
	cacheEvents   *prometheus.CounterVec
}

// New registers all collectors plus the Go and process collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		questions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kokoro_questions_total",
			Help: "Questions answered, by outcome.",
		}, []string{"outcome"}),
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kokoro_stage_duration_seconds",
			Help:    "Duration of indexing and answering stages.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"stage"}),
		corpusChunks: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kokoro_corpus_chunks",
			Help: "Number of chunks in the loaded corpus.",
		}),
		cacheEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kokoro_cache_events_total",
			Help: "Embedding cache events at startup, by kind.",
		}, []string{"event"}),
	}
}

// Question counts one answered question.
func (m *Metrics) Question(outcome string) {
	if m == nil {
		return
	}
	m.questions.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took since start.
func (m *Metrics) ObserveStage(stage string, start time.Time) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// SetCorpusChunks sets the corpus size gauge.
func (m *Metrics) SetCorpusChunks(n int) {
	if m == nil {
		return
	}
	m.corpusChunks.Set(float64(n))
}

// CacheEvent counts one cache event.
func (m *Metrics) CacheEvent(event string) {
	if m == nil {
		return
	}
	m.cacheEvents.WithLabelValues(event).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
