package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the attempt stream fan-out.
type Metrics struct {
	Published             prometheus.Counter
	BufferDropped         prometheus.Counter
	CircuitBreakerDropped prometheus.Counter
	PublishFailures       prometheus.Counter
	CircuitBreakerState   prometheus.Gauge
}

// New creates the fan-out metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_attempt_stream_published_total",
			Help: "Attempt records delivered to the stream",
		}),
		BufferDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_attempt_stream_buffer_dropped_total",
			Help: "Attempt records dropped because the fan-out buffer was full",
		}),
		CircuitBreakerDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_attempt_stream_circuit_breaker_dropped_total",
			Help: "Attempt records dropped while the stream circuit breaker was open",
		}),
		PublishFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_attempt_stream_publish_failures_total",
			Help: "Failed publish calls to the attempt stream",
		}),
		CircuitBreakerState: f.NewGauge(prometheus.GaugeOpts{
			Name: "kycgate_attempt_stream_circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed/healthy, 1=open/unhealthy)",
		}),
	}
}

func (m *Metrics) AddPublished(n int) {
	if m != nil {
		m.Published.Add(float64(n))
	}
}

func (m *Metrics) IncBufferDropped() {
	if m != nil {
		m.BufferDropped.Inc()
	}
}

func (m *Metrics) AddCircuitBreakerDropped(n int) {
	if m != nil {
		m.CircuitBreakerDropped.Add(float64(n))
	}
}

func (m *Metrics) IncPublishFailures() {
	if m != nil {
		m.PublishFailures.Inc()
	}
}

// SetCircuitBreakerState sets the circuit breaker state gauge.
func (m *Metrics) SetCircuitBreakerState(open bool) {
	if m == nil {
		return
	}
	if open {
		m.CircuitBreakerState.Set(1)
	} else {
		m.CircuitBreakerState.Set(0)
	}
}
