package browser

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browse_cache_lookups_total",
			Help: "Response cache lookups by backend and result (hit, miss, stale)",
		},
		[]string{"backend", "result"},
	)

	fetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browse_fetches_total",
			Help: "Catalog page fetches by outcome (network, cached, error, dropped)",
		},
		[]string{"outcome"},
	)

	fetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "browse_fetch_duration_seconds",
			Help:    "Time to resolve a catalog page from cache or network",
			Buckets: prometheus.DefBuckets,
		},
	)

	suggestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browse_suggestions_total",
			Help: "Name suggestion lookups by outcome (success, error, empty)",
		},
		[]string{"outcome"},
	)

	prefetchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "browse_prefetch_total",
			Help: "Price history prefetches by outcome (network, cached, error)",
		},
		[]string{"outcome"},
	)

	prefetchInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "browse_prefetch_in_flight",
			Help: "Price history requests currently in flight",
		},
	)
)
