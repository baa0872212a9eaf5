package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	IndicatorsClassified = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_indicators_classified_total",
			Help: "Total number of indicators classified",
		},
		[]string{"type"},
	)

	EnrichmentRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_enrichment_requests_total",
			Help: "Total number of enrichment rounds by outcome",
		},
		[]string{"outcome"},
	)

	EnrichmentCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_enrichment_cache_hits_total",
			Help: "Total number of enrichment deltas served from cache",
		},
	)

	CollaboratorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "triage_collaborator_failures_total",
			Help: "Total number of failed collaborator calls",
		},
		[]string{"collaborator"},
	)

	CollaboratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "triage_collaborator_duration_seconds",
			Help:    "Round-trip time of collaborator calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collaborator"},
	)

	StaleCompletionsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "triage_stale_completions_dropped_total",
			Help: "Total number of collaborator responses discarded because a later-issued operation already applied",
		},
	)
)
