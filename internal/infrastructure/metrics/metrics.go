package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketpulse/internal/application/port"
)

// Recorder implements port.Metrics using Prometheus.
type Recorder struct {
	reg *prometheus.Registry

	ticksApplied     *prometheus.CounterVec
	trackedProducts  *prometheus.GaugeVec
	framesDropped    *prometheus.CounterVec
	feedDisconnects  *prometheus.CounterVec
	fetchFailures    *prometheus.CounterVec
	scoringFailures  prometheus.Counter
	persistFailures  *prometheus.CounterVec
	sentimentCycles  prometheus.Counter
	sentimentSamples prometheus.Gauge
	overall          prometheus.Gauge
}

// New creates a recorder on its own registry so tests can build many.
func New() *Recorder {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Recorder{
		reg: reg,
		ticksApplied: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_ticks_applied_total",
				Help: "Total number of ticks applied to the aggregate store",
			},
			[]string{"exchange"},
		),
		trackedProducts: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "marketpulse_tracked_products",
				Help: "Number of products currently tracked per exchange",
			},
			[]string{"exchange"},
		),
		framesDropped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_frames_dropped_total",
				Help: "Malformed ticker frames dropped",
			},
			[]string{"exchange"},
		),
		feedDisconnects: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_feed_disconnects_total",
				Help: "Feed connection failures",
			},
			[]string{"exchange"},
		),
		fetchFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_sentiment_fetch_failures_total",
				Help: "Failed sentiment source fetches",
			},
			[]string{"source"},
		),
		scoringFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "marketpulse_sentiment_scoring_failures_total",
			Help: "Texts the scorer could not score",
		}),
		persistFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketpulse_persist_failures_total",
				Help: "Snapshot publish failures",
			},
			[]string{"target"},
		),
		sentimentCycles: f.NewCounter(prometheus.CounterOpts{
			Name: "marketpulse_sentiment_cycles_total",
			Help: "Sentiment cycles that produced a summary",
		}),
		sentimentSamples: f.NewGauge(prometheus.GaugeOpts{
			Name: "marketpulse_sentiment_samples",
			Help: "Samples fused in the last sentiment cycle",
		}),
		overall: f.NewGauge(prometheus.GaugeOpts{
			Name: "marketpulse_sentiment_overall",
			Help: "Overall sentiment of the last cycle",
		}),
	}
}

func (r *Recorder) TickApplied(exchange string, tracked int) {
	r.ticksApplied.WithLabelValues(exchange).Inc()
	r.trackedProducts.WithLabelValues(exchange).Set(float64(tracked))
}

func (r *Recorder) FrameDropped(exchange string) {
	r.framesDropped.WithLabelValues(exchange).Inc()
}

func (r *Recorder) FeedDisconnected(exchange string) {
	r.feedDisconnects.WithLabelValues(exchange).Inc()
}

func (r *Recorder) FetchFailed(source string) {
	r.fetchFailures.WithLabelValues(source).Inc()
}

func (r *Recorder) ScoringFailed() { r.scoringFailures.Inc() }

func (r *Recorder) PersistFailed(target string) {
	r.persistFailures.WithLabelValues(target).Inc()
}

func (r *Recorder) SentimentFused(samples int, overall float64) {
	r.sentimentCycles.Inc()
	r.sentimentSamples.Set(float64(samples))
	r.overall.Set(overall)
}

// Handler serves the recorder's registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{})
}

var _ port.Metrics = (*Recorder)(nil)
