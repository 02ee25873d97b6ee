package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	signalsTotal    *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	deliveriesTotal *prometheus.CounterVec
	sweepRunsTotal  *prometheus.CounterVec
	liveTrades      prometheus.Gauge
	latency         *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		signalsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderelay_signals_total",
				Help: "Total number of inbound signals by type",
			},
			[]string{"type"},
		),
		rejectionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderelay_rejections_total",
				Help: "Total number of rejected signals by reason",
			},
			[]string{"reason"},
		),
		deliveriesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderelay_deliveries_total",
				Help: "Notification delivery outcomes per channel",
			},
			[]string{"channel", "outcome"},
		),
		sweepRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "traderelay_sweep_runs_total",
				Help: "Sweep job executions by name and outcome",
			},
			[]string{"sweep", "outcome"},
		),
		liveTrades: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "traderelay_live_trades",
				Help: "Number of currently live trades",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "traderelay_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordSignal counts one inbound signal.
func (r *Recorder) RecordSignal(signalType string) {
	r.signalsTotal.WithLabelValues(signalType).Inc()
}

// RecordRejection counts one rejected signal.
func (r *Recorder) RecordRejection(reason string) {
	r.rejectionsTotal.WithLabelValues(reason).Inc()
}

// RecordDelivery counts one delivery outcome for a channel.
func (r *Recorder) RecordDelivery(channel, outcome string) {
	r.deliveriesTotal.WithLabelValues(channel, outcome).Inc()
}

// RecordSweep counts one sweep run.
func (r *Recorder) RecordSweep(sweep, outcome string) {
	r.sweepRunsTotal.WithLabelValues(sweep, outcome).Inc()
}

// SetLiveTrades records the current live-trade count.
func (r *Recorder) SetLiveTrades(n int) {
	r.liveTrades.Set(float64(n))
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
