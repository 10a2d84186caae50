package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Admitted    prometheus.Counter
	Denied      prometheus.Counter
	StoreErrors prometheus.Counter
	Resets      prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Admitted: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_admitted_total",
			Help: "Verification requests admitted by the rate limiter",
		}),
		Denied: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_denied_total",
			Help: "Verification requests denied by the rate limiter",
		}),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_store_errors_total",
			Help: "Rate limit store failures; the request is admitted when this happens",
		}),
		Resets: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_resets_total",
			Help: "Rate limit windows cleared by an operator",
		}),
	}
}

func (m *Metrics) IncrementAdmitted() {
	if m == nil {
		return
	}
	m.Admitted.Inc()
}

func (m *Metrics) IncrementDenied() {
	if m == nil {
		return
	}
	m.Denied.Inc()
}

func (m *Metrics) IncrementStoreErrors() {
	if m == nil {
		return
	}
	m.StoreErrors.Inc()
}

func (m *Metrics) IncrementResets() {
	if m == nil {
		return
	}
	m.Resets.Inc()
}
