package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "mailtriage"

// Round outcomes.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomeSkipped = "skipped"
)

// Metrics holds the collectors for ingestion and triage. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ingested      *prometheus.CounterVec
	duplicates    *prometheus.CounterVec
	ingestFailed  *prometheus.CounterVec
	attachSkipped prometheus.Counter
	rounds        *prometheus.CounterVec
	marked        *prometheus.CounterVec
	roundDuration prometheus.Histogram
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ingested: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_ingested_total",
			Help:      "Emails stored, by import source.",
		}, []string{"source"}),
		duplicates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_duplicate_total",
			Help:      "Emails ignored because the message id was already stored.",
		}, []string{"source"}),
		ingestFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_ingest_failed_total",
			Help:      "Emails that could not be parsed or stored.",
		}, []string{"source"}),
		attachSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attachments_skipped_total",
			Help:      "Attachments dropped for exceeding the size ceiling.",
		}),
		rounds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "triage_rounds_total",
			Help:      "Triage rounds, by outcome.",
		}, []string{"outcome"}),
		marked: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "emails_marked_total",
			Help:      "Emails marked processed, by status.",
		}, []string{"status"}),
		roundDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "triage_round_duration_seconds",
			Help:      "Wall time of a triage round.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ingested,
		m.duplicates,
		m.ingestFailed,
		m.attachSkipped,
		m.rounds,
		m.marked,
		m.roundDuration,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.HandlerFor(prometheus.NewRegistry(), promhttp.HandlerOpts{})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) EmailIngested(source string) {
	if m == nil {
		return
	}
	m.ingested.WithLabelValues(source).Inc()
}

func (m *Metrics) EmailDuplicate(source string) {
	if m == nil {
		return
	}
	m.duplicates.WithLabelValues(source).Inc()
}

func (m *Metrics) EmailFailed(source string) {
	if m == nil {
		return
	}
	m.ingestFailed.WithLabelValues(source).Inc()
}

func (m *Metrics) AttachmentSkipped() {
	if m == nil {
		return
	}
	m.attachSkipped.Inc()
}

func (m *Metrics) RoundFinished(outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.rounds.WithLabelValues(outcome).Inc()
	m.roundDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) EmailMarked(status string) {
	if m == nil {
		return
	}
	m.marked.WithLabelValues(status).Inc()
}
