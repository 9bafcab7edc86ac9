package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "titlevault",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "titlevault",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	FetchAttemptsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "titlevault",
		Name:      "fetch_attempts_total",
		Help:      "Outbound JSON fetch attempts by upstream host and outcome.",
	}, []string{"host", "outcome"})

	FetchFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "titlevault",
		Name:      "fetch_failures_total",
		Help:      "Outbound JSON fetches that exhausted every retry, by upstream host.",
	}, []string{"host"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "titlevault",
		Name:      "provider_requests_total",
		Help:      "Total requests to search providers by provider name and result status.",
	}, []string{"provider", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "titlevault",
		Name:      "provider_request_duration_seconds",
		Help:      "Search provider request duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"provider"})

	ProviderAvailable = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "titlevault",
		Name:      "provider_available",
		Help:      "Whether a provider is available (1) or blocked by circuit breaker (0).",
	}, []string{"provider"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "titlevault",
		Name:      "cache_hits_total",
		Help:      "Total number of cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "titlevault",
		Name:      "cache_misses_total",
		Help:      "Total number of cache misses.",
	})

	CacheEvictionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "titlevault",
		Name:      "cache_evictions_total",
		Help:      "Cache entries removed, by reason (expired, version, corrupt, lru).",
	}, []string{"reason"})

	EnrichmentStagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "titlevault",
		Name:      "enrichment_stages_total",
		Help:      "Enrichment stage runs by stage and outcome (contributed, empty, skipped, failed).",
	}, []string{"stage", "outcome"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		FetchAttemptsTotal,
		FetchFailuresTotal,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		ProviderAvailable,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheEvictionsTotal,
		EnrichmentStagesTotal,
	)
}
