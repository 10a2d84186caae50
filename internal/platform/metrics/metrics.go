package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the process-wide counters that do not belong to a single
// module package: registry size and recovery, sessions, and the attempt log.
type Metrics struct {
	IdentitiesStored   prometheus.Gauge
	RegistryRecoveries prometheus.Counter
	SessionsIssued     prometheus.Counter
	SessionsRefused    prometheus.Counter
	AttemptsRecorded   *prometheus.CounterVec
	AuditFailures      *prometheus.CounterVec
}

// New creates and registers all platform metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		IdentitiesStored: f.NewGauge(prometheus.GaugeOpts{
			Name: "kycgate_registry_identities",
			Help: "Number of identity vectors currently stored in the registry",
		}),
		RegistryRecoveries: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_registry_recoveries_total",
			Help: "Times the persisted registry was unreadable and reset to empty on load",
		}),
		SessionsIssued: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_sessions_issued_total",
			Help: "Verification session tokens issued",
		}),
		SessionsRefused: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_sessions_refused_total",
			Help: "Session issuance refused because the live-session cap was reached",
		}),
		AttemptsRecorded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_attempts_recorded_total",
			Help: "Attempt records appended, by attempt type and status",
		}, []string{"type", "status"}),
		AuditFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_audit_failures_total",
			Help: "Attempt log writes that failed, by sink",
		}, []string{"sink"}),
	}
}

func (m *Metrics) SetIdentities(n int) {
	if m != nil {
		m.IdentitiesStored.Set(float64(n))
	}
}

func (m *Metrics) IncrementRegistryRecoveries() {
	if m != nil {
		m.RegistryRecoveries.Inc()
	}
}

func (m *Metrics) IncrementSessionsIssued() {
	if m != nil {
		m.SessionsIssued.Inc()
	}
}

func (m *Metrics) IncrementSessionsRefused() {
	if m != nil {
		m.SessionsRefused.Inc()
	}
}

func (m *Metrics) IncrementAttempts(attemptType, status string) {
	if m != nil {
		m.AttemptsRecorded.WithLabelValues(attemptType, status).Inc()
	}
}

func (m *Metrics) IncrementAuditFailures(sink string) {
	if m != nil {
		m.AuditFailures.WithLabelValues(sink).Inc()
	}
}
