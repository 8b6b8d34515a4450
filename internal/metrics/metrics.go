// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ClaimChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_claim_checks_total",
			Help: "Claim checks by outcome (verdict label or error code)",
		},
		[]string{"outcome"},
	)

	ChatTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_chat_turns_total",
			Help: "Chat turns by outcome",
		},
		[]string{"outcome"},
	)

	ReasoningAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_reasoning_attempts_total",
			Help: "Language-model calls by mode and outcome",
		},
		[]string{"mode", "outcome"},
	)

	CitationsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "claimcheck_citations_dropped_total",
			Help: "Citations removed because they named no supplied evidence",
		},
	)

	OnlineExpansions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_online_expansions_total",
			Help: "Online expansion calls by outcome",
		},
		[]string{"outcome"},
	)

	OnlineSourceErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "claimcheck_online_source_errors_total",
			Help: "Failures of individual online sources",
		},
		[]string{"source"},
	)

	RetrievalDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "claimcheck_retrieval_duration_seconds",
			Help:    "Local retrieval latency including query embedding",
			Buckets: prometheus.DefBuckets,
		},
	)

	SessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "claimcheck_session_locks_held",
			Help: "Session locks currently held or awaited",
		},
	)
)
