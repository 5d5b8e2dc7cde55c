package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request-level metrics for the HTTP API.
var (
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fraudgraph",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "code"})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fraudgraph",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route"})
)

// Aggregation metrics.
var (
	InvestigationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fraudgraph",
		Name:      "investigations_total",
		Help:      "Completed case investigations.",
	})

	RecordsNormalized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fraudgraph",
		Name:      "records_normalized_total",
		Help:      "Raw records successfully normalized.",
	})

	RecordsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fraudgraph",
		Name:      "records_dropped_total",
		Help:      "Raw records dropped during normalization.",
	}, []string{"reason"})
)

// Upstream and cache metrics.
var (
	UpstreamRetries = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fraudgraph",
		Name:      "upstream_retries_total",
		Help:      "Retried upstream case API calls.",
	})

	UpstreamFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fraudgraph",
		Name:      "upstream_failures_total",
		Help:      "Upstream case API calls that failed after retries.",
	})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fraudgraph",
		Name:      "cache_hits_total",
		Help:      "Case-file cache hits.",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "fraudgraph",
		Name:      "cache_misses_total",
		Help:      "Case-file cache misses.",
	})
)
