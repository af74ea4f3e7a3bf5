package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SignInAttempts records sign-in attempts by outcome
	// (authenticated|setup_required|verification_required|failure).
	SignInAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bciam_sign_in_attempts_total",
			Help: "Total number of sign-in attempts",
		},
		[]string{"outcome"},
	)

	// TwoFactorVerifications counts TOTP verifications by result (success|failure).
	TwoFactorVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bciam_two_factor_verifications_total",
			Help: "Total number of two-factor code verifications",
		},
		[]string{"result"},
	)

	// SignUps counts account creations by result (success|failure).
	SignUps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bciam_sign_ups_total",
			Help: "Total number of sign-up attempts",
		},
		[]string{"result"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bciam_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
