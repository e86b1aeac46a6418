package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// AnalysesTotal is labelled with "success" or the failure kind
	AnalysesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "og_analyses_total",
			Help: "Total number of URL analyses by outcome.",
		},
		[]string{"outcome"},
	)

	GenerationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "og_generation_duration_seconds",
			Help:    "Duration of generative AI calls.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
		},
	)

	CacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "og_cache_lookups_total",
			Help: "Analysis cache lookups by result.",
		},
		[]string{"result"},
	)
)
