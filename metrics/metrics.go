// Package metrics provides Prometheus metrics for auth operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for auth operations.
// If created disabled, every method is a no-op.
type Metrics struct {
	enabled bool

	loginsTotal    *prometheus.CounterVec
	refreshesTotal *prometheus.CounterVec
	lockoutsTotal  prometheus.Counter

	verifyFailuresTotal *prometheus.CounterVec

	authzDecisionsTotal *prometheus.CounterVec
	authzCheckDuration  prometheus.Histogram
}

// New creates and registers the metrics.
// If enabled is false, returns a no-op instance.
func New(enabled bool) *Metrics {
	m := &Metrics{enabled: enabled}

	if !enabled {
		return m
	}

	m.loginsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brixauth_logins_total",
		Help: "Total login attempts by result",
	}, []string{"result"})

	m.refreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brixauth_refreshes_total",
		Help: "Total token refreshes by result",
	}, []string{"result"})

	m.lockoutsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "brixauth_login_lockouts_total",
		Help: "Total client-side login lockouts",
	})

	m.verifyFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brixauth_verify_failures_total",
		Help: "Total token verification failures",
	}, []string{"reason"})

	m.authzDecisionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "brixauth_authz_decisions_total",
		Help: "Total authorization decisions",
	}, []string{"result"})

	m.authzCheckDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "brixauth_authz_check_duration_seconds",
		Help:    "Authorization check duration in seconds",
		Buckets: prometheus.DefBuckets,
	})

	return m
}

// RecordLogin records a login attempt outcome ("success", "unauthorized",
// "validation", "rate_limited", "network").
func (m *Metrics) RecordLogin(result string) {
	if !m.enabled {
		return
	}
	m.loginsTotal.WithLabelValues(result).Inc()
}

// RecordRefresh records a token refresh outcome.
func (m *Metrics) RecordRefresh(result string) {
	if !m.enabled {
		return
	}
	m.refreshesTotal.WithLabelValues(result).Inc()
}

// RecordLockout records a client-side login lockout.
func (m *Metrics) RecordLockout() {
	if !m.enabled {
		return
	}
	m.lockoutsTotal.Inc()
}

// RecordVerifyFailure records a token verification failure.
func (m *Metrics) RecordVerifyFailure(reason string) {
	if !m.enabled {
		return
	}
	m.verifyFailuresTotal.WithLabelValues(reason).Inc()
}

// RecordAuthzDecision records an authorization decision and its duration.
func (m *Metrics) RecordAuthzDecision(allowed bool, durationSeconds float64) {
	if !m.enabled {
		return
	}
	result := "denied"
	if allowed {
		result = "allowed"
	}
	m.authzDecisionsTotal.WithLabelValues(result).Inc()
	m.authzCheckDuration.Observe(durationSeconds)
}
