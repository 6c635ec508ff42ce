// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authledger Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels for registration and verification metrics.
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidInput       = "invalid_input"
	OutcomePasswordMismatch   = "password_mismatch"
	OutcomeDuplicate          = "duplicate"
	OutcomeNotFound           = "not_found"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

// Registrations counts RegisterUser calls by outcome.
var Registrations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authledger_registrations_total",
		Help: "Total number of user registrations by outcome",
	},
	[]string{"outcome"},
)

// Verifications counts VerifyCredentials calls by outcome.
var Verifications = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "authledger_verifications_total",
		Help: "Total number of credential verifications by outcome",
	},
	[]string{"outcome"},
)

// VerificationDuration observes end-to-end VerifyCredentials latency.
var VerificationDuration = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "authledger_verification_duration_seconds",
		Help:    "Credential verification duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
)

// HistoryTrimmed counts login history rows removed by trims and compaction.
var HistoryTrimmed = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "authledger_history_trimmed_rows_total",
		Help: "Total number of login history rows deleted by trimming",
	},
)

// RegisterMetrics registers auth metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(Registrations)
	reg.MustRegister(Verifications)
	reg.MustRegister(VerificationDuration)
	reg.MustRegister(HistoryTrimmed)
}

func recordRegistration(outcome string) {
	Registrations.WithLabelValues(outcome).Inc()
}

func recordVerification(outcome string, took time.Duration) {
	Verifications.WithLabelValues(outcome).Inc()
	VerificationDuration.Observe(took.Seconds())
}

func recordTrimmed(rows int64) {
	if rows > 0 {
		HistoryTrimmed.Add(float64(rows))
	}
}
