// Package metrics defines the Prometheus counters for the authentication
// flows.  A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the auth counters.
type Metrics struct {
	TokensIssued   *prometheus.CounterVec
	GuardDecisions *prometheus.CounterVec
	Revocations    *prometheus.CounterVec
	PasswordResets *prometheus.CounterVec
	MailDispatch   *prometheus.CounterVec
}

// New creates and registers the auth metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TokensIssued: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_tokens_issued_total",
				Help: "Bearer tokens issued by flow",
			},
			[]string{"flow"},
		),
		GuardDecisions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_guard_decisions_total",
				Help: "Authentication guard outcomes by reason",
			},
			[]string{"outcome", "reason"},
		),
		Revocations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_revocations_total",
				Help: "Token revocations by kind (all, token)",
			},
			[]string{"kind"},
		),
		PasswordResets: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_password_resets_total",
				Help: "Password reset flow events by stage",
			},
			[]string{"stage"},
		),
		MailDispatch: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_mail_dispatch_total",
				Help: "Reset mail queue and delivery results",
			},
			[]string{"result"},
		),
	}

	reg.MustRegister(m.TokensIssued, m.GuardDecisions, m.Revocations, m.PasswordResets, m.MailDispatch)
	return m
}

// NewRegistry returns a registry with the Go and process collectors plus
// the auth metrics.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg, New(reg)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true})
}

func (m *Metrics) TokenIssued(flow string) {
	if m == nil {
		return
	}
	m.TokensIssued.WithLabelValues(flow).Inc()
}

func (m *Metrics) GuardDecision(outcome, reason string) {
	if m == nil {
		return
	}
	m.GuardDecisions.WithLabelValues(outcome, reason).Inc()
}

func (m *Metrics) Revoked(kind string) {
	if m == nil {
		return
	}
	m.Revocations.WithLabelValues(kind).Inc()
}

func (m *Metrics) PasswordReset(stage string) {
	if m == nil {
		return
	}
	m.PasswordResets.WithLabelValues(stage).Inc()
}

func (m *Metrics) Mail(result string) {
	if m == nil {
		return
	}
	m.MailDispatch.WithLabelValues(result).Inc()
}
