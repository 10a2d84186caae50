package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for verification decisions.
type Metrics struct {
	// Terminal states reached, by state and status
	DecisionOutcome *prometheus.CounterVec

	// Per-stage latency of the pipeline
	StageLatency *prometheus.HistogramVec

	// Whole-request verification latency
	VerifyLatency prometheus.Histogram

	// Motion fallback uses when the liveness scorer was unavailable
	MotionFallbacks prometheus.Counter
}

// New creates the decision metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		DecisionOutcome: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_decision_outcomes_total",
			Help: "Verification outcomes by terminal state and status",
		}, []string{"state", "status"}),

		StageLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_pipeline_stage_duration_seconds",
			Help:    "Duration of each verification pipeline stage",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"stage"}),

		VerifyLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_verify_duration_seconds",
			Help:    "Duration of a full verification request",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		MotionFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_liveness_motion_fallback_total",
			Help: "Liveness decisions made by the motion-difference fallback",
		}),
	}
}

// IncrementOutcome records a terminal state.
func (m *Metrics) IncrementOutcome(state, status string) {
	if m != nil {
		m.DecisionOutcome.WithLabelValues(state, status).Inc()
	}
}

// ObserveStageLatency records the duration of one pipeline stage.
func (m *Metrics) ObserveStageLatency(stage string, d time.Duration) {
	if m != nil {
		m.StageLatency.WithLabelValues(stage).Observe(d.Seconds())
	}
}

// ObserveVerifyLatency records the total verification duration.
func (m *Metrics) ObserveVerifyLatency(d time.Duration) {
	if m != nil {
		m.VerifyLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementMotionFallback() {
	if m != nil {
		m.MotionFallbacks.Inc()
	}
}
