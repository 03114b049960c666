// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors for authentication events.
type Metrics struct {
	CodesIssued       prometheus.Counter
	RateLimited       *prometheus.CounterVec
	SMSFailures       prometheus.Counter
	Verifications     *prometheus.CounterVec
	Logins            *prometheus.CounterVec
	PasswordChanges   *prometheus.CounterVec
	TokenCoordination *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		CodesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phoneauth_verification_codes_issued_total",
			Help: "Total number of verification codes issued",
		}),
		RateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "phoneauth_verification_rate_limited_total",
			Help: "Total number of code requests rejected by rate limiting, by tier",
		}, []string{"tier"}),
		SMSFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "phoneauth_sms_send_failures_total",
			Help: "Total number of failed verification SMS dispatches",
		}),
		Verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "phoneauth_verifications_total",
			Help: "Total number of phone verification attempts by result",
		}, []string{"result"}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "phoneauth_logins_total",
			Help: "Total number of login attempts by result",
		}, []string{"result"}),
		PasswordChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "phoneauth_password_changes_total",
			Help: "Total number of password change attempts by result",
		}, []string{"result"}),
		TokenCoordination: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "phoneauth_token_coordination_failures_total",
			Help: "Total number of session token coordination failures by operation",
		}, []string{"operation"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.CodesIssued,
			m.RateLimited,
			m.SMSFailures,
			m.Verifications,
			m.Logins,
			m.PasswordChanges,
			m.TokenCoordination,
		)
	}
	return m
}

// result labels an outcome by error kind.
func result(err error) string {
	if err == nil {
		return "success"
	}
	return string(KindOf(err))
}
