package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics collects per-session counters and latencies.
//
// Each Metrics owns its registry, so sessions built in tests never collide on
// the default registerer. A nil *Metrics is valid and records nothing.
//
// Usage:
//
//	m := metrics.New()
//	m.DocumentLoaded("indic", "ok")
//	m.AnswerRecorded("indic", "answered", time.Since(start))
type Metrics struct {
	registry *prometheus.Registry

	// DocumentsLoaded counts document loads.
	// Labels: category, outcome (ok|error)
	DocumentsLoaded *prometheus.CounterVec

	// Answers counts produced results.
	// Labels: category, status (answered|insufficient_context|failed)
	Answers *prometheus.CounterVec

	// AnswerDuration measures retrieval plus generation per question in seconds.
	// Labels: category
	AnswerDuration *prometheus.HistogramVec

	// Sessions counts finished sessions.
	// Labels: outcome (complete|partial|failed)
	Sessions *prometheus.CounterVec

	// CategoryOutcomes counts per-category outcomes.
	// Labels: category, outcome (success|partial|skipped)
	CategoryOutcomes *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		DocumentsLoaded: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "documents_loaded_total",
			Help:      "Document loads by category and outcome.",
		}, []string{"category", "outcome"}),
		Answers: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "answers_total",
			Help:      "Question results by category and status.",
		}, []string{"category", "status"}),
		AnswerDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "docqa",
			Name:      "answer_duration_seconds",
			Help:      "Retrieval plus generation time per question.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"category"}),
		Sessions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "sessions_total",
			Help:      "Sessions by outcome.",
		}, []string{"outcome"}),
		CategoryOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "docqa",
			Name:      "category_outcomes_total",
			Help:      "Per-category session outcomes.",
		}, []string{"category", "outcome"}),
	}
}

// Registry exposes the gatherer for export.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) DocumentLoaded(category, outcome string) {
	if m == nil {
		return
	}
	m.DocumentsLoaded.WithLabelValues(category, outcome).Inc()
}

func (m *Metrics) AnswerRecorded(category, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.Answers.WithLabelValues(category, status).Inc()
	m.AnswerDuration.WithLabelValues(category).Observe(d.Seconds())
}

func (m *Metrics) CategoryFinished(category, outcome string) {
	if m == nil {
		return
	}
	m.CategoryOutcomes.WithLabelValues(category, outcome).Inc()
}

func (m *Metrics) SessionFinished(outcome string) {
	if m == nil {
		return
	}
	m.Sessions.WithLabelValues(outcome).Inc()
}

// WriteTextfile writes every collected metric in the text exposition format,
// suitable for the node_exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
