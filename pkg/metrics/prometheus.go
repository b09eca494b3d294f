package metrics

import (
	"MarketAnalyst/internal/domain/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics on Prometheus.
type Recorder struct {
	analyses  *prometheus.CounterVec
	signals   *prometheus.CounterVec
	score     *prometheus.GaugeVec
	errors    *prometheus.CounterVec
	latency   *prometheus.HistogramVec
	lastBatch prometheus.Gauge
}

// New registers the collectors on reg; nil means the default registry.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketanalyst_analyses_total",
			Help: "Timeframe evaluations by resulting direction.",
		}, []string{"timeframe", "direction"}),
		signals: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketanalyst_signals_total",
			Help: "Signals found by the history and monthly scanners.",
		}, []string{"kind"}),
		score: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "marketanalyst_confirmation_score",
			Help: "Latest confirmation score per ticker.",
		}, []string{"ticker"}),
		errors: f.NewCounterVec(prometheus.CounterOpts{
			Name: "marketanalyst_errors_total",
			Help: "Errors by kind.",
		}, []string{"kind"}),
		latency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "marketanalyst_operation_duration_seconds",
			Help:    "Duration of analysis operations.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		lastBatch: f.NewGauge(prometheus.GaugeOpts{
			Name: "marketanalyst_last_batch_timestamp_seconds",
			Help: "Unix time the last batch analysis finished.",
		}),
	}
}

func (r *Recorder) RecordAnalysis(timeframe string, direction models.Direction) {
	r.analyses.WithLabelValues(timeframe, direction.String()).Inc()
}

func (r *Recorder) RecordSignals(kind string, n int) {
	if n > 0 {
		r.signals.WithLabelValues(kind).Add(float64(n))
	}
}

func (r *Recorder) RecordScore(ticker string, score float64) {
	r.score.WithLabelValues(ticker).Set(score)
}

func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordLatency observes seconds; the "batch" operation also stamps the
// last-batch gauge.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
	if op == "batch" {
		r.lastBatch.SetToCurrentTime()
	}
}
