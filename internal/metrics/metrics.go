package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// CacheLookups результат обращения к кешу курсов: hit, miss, error
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rates_cache_lookups_total",
			Help: "Rate cache lookups by key shape and result",
		},
		[]string{"shape", "result"},
	)

	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_provider_requests_total",
			Help: "Requests to the upstream rate provider by operation and outcome",
		},
		[]string{"op", "result"},
	)

	ConversionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "conversions_total",
			Help: "Total number of recorded currency conversions",
		},
	)

	RefreshRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rates_refresh_runs_total",
			Help: "Scheduled refresh runs by outcome",
		},
		[]string{"result"},
	)

	RefreshAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rates_refresh_attempts_total",
			Help: "Refresh attempts including retries",
		},
	)

	RefreshRows = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rates_refresh_rows_total",
			Help: "Persisted rate rows written by the refresh job",
		},
		[]string{"action"},
	)

	RefreshLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rates_refresh_last_success_timestamp_seconds",
			Help: "Unix time of the last successful refresh",
		},
	)
)
