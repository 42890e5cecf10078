package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	roundsTotal     *prometheus.CounterVec
	errorsTotal     *prometheus.CounterVec
	strength        *prometheus.GaugeVec
	latency         *prometheus.HistogramVec
	providerLatency *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		roundsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_rounds_total",
				Help: "Total number of decision rounds by outcome",
			},
			[]string{"outcome", "symbol"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quorum_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		strength: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "quorum_consensus_strength",
				Help: "Consensus strength of the last completed round for a symbol",
			},
			[]string{"symbol"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		providerLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quorum_provider_duration_seconds",
				Help:    "Per-provider recommendation latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}
}

// RecordRound records a completed round attempt by outcome.
func (r *Recorder) RecordRound(outcome, symbol string) {
	r.roundsTotal.WithLabelValues(outcome, symbol).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordConsensusStrength records the strength of the latest round for a symbol.
func (r *Recorder) RecordConsensusStrength(symbol string, strength float64) {
	r.strength.WithLabelValues(symbol).Set(strength)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}

// RecordProviderLatency records one provider call's latency in seconds.
func (r *Recorder) RecordProviderLatency(provider string, seconds float64) {
	r.providerLatency.WithLabelValues(provider).Observe(seconds)
}
