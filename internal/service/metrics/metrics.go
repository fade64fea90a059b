package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sandevgo/docportal/internal/core"
)

const namespace = "docportal"

// Recorder holds the Prometheus collectors for conversation outcomes.
type Recorder struct {
	registry *prometheus.Registry

	ruleHits    prometheus.Counter
	completions *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	ingestions  *prometheus.CounterVec
	rejections  *prometheus.CounterVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		ruleHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rule_hits_total",
			Help:      "Messages answered by a keyword rule.",
		}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "Completion calls by delivery mode and outcome.",
		}, []string{"mode", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_duration_seconds",
			Help:      "Time from request to final reply.",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"mode"}),
		ingestions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingestions_total",
			Help:      "Document ingestions by outcome.",
		}, []string{"outcome"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rejections_total",
			Help:      "Messages rejected before resolution.",
		}, []string{"reason"}),
	}

	r.registry.MustRegister(
		r.ruleHits, r.completions, r.latency, r.ingestions, r.rejections,
		collectors.NewGoCollector(),
	)
	return r
}

func (r *Recorder) RuleHit() {
	r.ruleHits.Inc()
}

func (r *Recorder) Completion(mode string, err error, elapsed time.Duration) {
	r.completions.WithLabelValues(mode, Outcome(err)).Inc()
	if err == nil {
		r.latency.WithLabelValues(mode).Observe(elapsed.Seconds())
	}
}

func (r *Recorder) Ingestion(err error) {
	r.ingestions.WithLabelValues(Outcome(err)).Inc()
}

func (r *Recorder) Rejected(err error) {
	r.rejections.WithLabelValues(Outcome(err)).Inc()
}

// TrackSessions exposes the live session count as a gauge.
func (r *Recorder) TrackSessions(count func() int) {
	r.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "sessions_active",
		Help:      "Sessions currently held in memory.",
	}, func() float64 { return float64(count()) }))
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Outcome maps an error onto a low-cardinality label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrBusy):
		return "busy"
	case errors.Is(err, core.ErrNotReady):
		return "not_ready"
	case errors.Is(err, core.ErrEmptyMessage):
		return "empty"
	case errors.Is(err, core.ErrDocumentTooLarge):
		return "too_large"
	case errors.Is(err, core.ErrConfiguration):
		return "configuration"
	case errors.Is(err, core.ErrIngestion):
		return "ingestion"
	default:
		return "completion"
	}
}
