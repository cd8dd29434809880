package orchestrator

import (
	"github.com/prometheus/client_golang/prometheus"

	"conductor/internal/services"
)

// Metrics tracks orchestrator Prometheus metrics. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	// ServiceState is 1 for the current state of every service, 0 otherwise
	ServiceState *prometheus.GaugeVec

	// TransitionsTotal counts state transitions by service and target state
	TransitionsTotal *prometheus.CounterVec

	// HealthChecksTotal counts steady-state probes by service and result
	HealthChecksTotal *prometheus.CounterVec

	// StartupDuration tracks time from launch to the first passing probe
	StartupDuration *prometheus.HistogramVec

	// AuditsTotal counts audit scheduler decisions by outcome
	AuditsTotal *prometheus.CounterVec

	// AuditEfficiency is the efficiency percentage of the last audit
	AuditEfficiency prometheus.Gauge
}

// NewMetrics creates orchestrator metrics with the conductor_ prefix and
// registers them with reg.
//
// Panics if registration fails (expected during initialization only).
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ServiceState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "conductor_service_state",
				Help: "Current state of each managed service (1 for the active state)",
			},
			[]string{"service", "state"},
		),
		TransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conductor_service_transitions_total",
				Help: "Total service state transitions by target state",
			},
			[]string{"service", "to"},
		),
		HealthChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conductor_health_checks_total",
				Help: "Total steady-state health probes by result",
			},
			[]string{"service", "result"}, // "success", "failure"
		),
		StartupDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "conductor_service_startup_duration_seconds",
				Help:    "Time from launch until the service passed its health check",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"service"},
		),
		AuditsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "conductor_audits_total",
				Help: "Total audit scheduler decisions by outcome",
			},
			[]string{"outcome"},
		),
		AuditEfficiency: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "conductor_audit_efficiency_percent",
				Help: "Endpoint efficiency reported by the last successful audit",
			},
		),
	}

	reg.MustRegister(
		m.ServiceState,
		m.TransitionsTotal,
		m.HealthChecksTotal,
		m.StartupDuration,
		m.AuditsTotal,
		m.AuditEfficiency,
	)

	return m
}

// RecordState sets the state gauge of service to state.
func (m *Metrics) RecordState(service string, state services.ServiceState) {
	if m == nil {
		return
	}
	for _, s := range services.AllStates {
		v := 0.0
		if s == state {
			v = 1
		}
		m.ServiceState.WithLabelValues(service, string(s)).Set(v)
	}
}

// RecordTransition records a state change.
func (m *Metrics) RecordTransition(service string, to services.ServiceState) {
	if m == nil {
		return
	}
	m.TransitionsTotal.WithLabelValues(service, string(to)).Inc()
	m.RecordState(service, to)
}

// RecordHealthCheck records a steady-state probe.
func (m *Metrics) RecordHealthCheck(service string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "failure"
	}
	m.HealthChecksTotal.WithLabelValues(service, result).Inc()
}

// RecordStartup records how long a service took to become healthy.
func (m *Metrics) RecordStartup(service string, seconds float64) {
	if m == nil {
		return
	}
	m.StartupDuration.WithLabelValues(service).Observe(seconds)
}

// RecordAudit records one scheduler decision. efficiency is only used for
// AuditRan.
func (m *Metrics) RecordAudit(outcome AuditOutcome, efficiency float64) {
	if m == nil {
		return
	}
	m.AuditsTotal.WithLabelValues(string(outcome)).Inc()
	if outcome == AuditRan {
		m.AuditEfficiency.Set(efficiency)
	}
}
