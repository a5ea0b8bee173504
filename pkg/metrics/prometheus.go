package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cycles       *prometheus.CounterVec
	gateDenials  *prometheus.CounterVec
	breakerTrips *prometheus.CounterVec
	score        *prometheus.GaugeVec
	confidence   *prometheus.GaugeVec
	totalBalance prometheus.Gauge
	available    prometheus.Gauge
	errorsTotal  *prometheus.CounterVec
	latency      *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		cycles: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexpilot_cycles_total",
				Help: "Decision cycles by bot and outcome",
			},
			[]string{"bot_id", "outcome"},
		),
		gateDenials: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexpilot_gate_denials_total",
				Help: "Risk gate denials by bot and constraint",
			},
			[]string{"bot_id", "reason"},
		),
		breakerTrips: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexpilot_breaker_trips_total",
				Help: "Circuit breaker trips by bot",
			},
			[]string{"bot_id"},
		),
		score: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dexpilot_composite_score",
				Help: "Latest composite score by pair",
			},
			[]string{"pair"},
		),
		confidence: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "dexpilot_composite_confidence",
				Help: "Latest composite confidence by pair",
			},
			[]string{"pair"},
		),
		totalBalance: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dexpilot_ledger_total_balance",
				Help: "Master portfolio total balance",
			},
		),
		available: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "dexpilot_ledger_available_funds",
				Help: "Master portfolio unallocated funds",
			},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dexpilot_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dexpilot_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordCycle records one decision cycle outcome for a bot.
func (r *Recorder) RecordCycle(botID, outcome string) {
	r.cycles.WithLabelValues(botID, outcome).Inc()
}

// RecordGateDenial records a risk gate denial.
func (r *Recorder) RecordGateDenial(botID, reason string) {
	r.gateDenials.WithLabelValues(botID, reason).Inc()
}

// RecordBreakerTrip records a circuit breaker trip.
func (r *Recorder) RecordBreakerTrip(botID string) {
	r.breakerTrips.WithLabelValues(botID).Inc()
}

// RecordCompositeScore records the latest composite signal for a pair.
func (r *Recorder) RecordCompositeScore(pair string, score, confidence float64) {
	r.score.WithLabelValues(pair).Set(score)
	r.confidence.WithLabelValues(pair).Set(confidence)
}

// RecordLedgerBalances records the master portfolio balances.
func (r *Recorder) RecordLedgerBalances(total, available float64) {
	r.totalBalance.Set(total)
	r.available.Set(available)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
