package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AnalyticsOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_operations_total",
		Help: "Total number of analytics operations executed",
	}, []string{"operation"})

	AnalyticsOperationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "analytics_operation_duration_seconds",
		Help:    "Latency of analytics operations",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	AnalyticsOperationsFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "analytics_operations_failed_total",
		Help: "Total number of failed analytics operations",
	}, []string{"operation", "reason"})

	CacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_hits_total",
		Help: "Total number of result cache hits",
	})

	CacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "result_cache_misses_total",
		Help: "Total number of result cache misses",
	})

	AlertsPublishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alerts_published_total",
		Help: "Total number of alert events published",
	}, []string{"event_type"})

	AlertScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "alert_scans_total",
		Help: "Total number of alert scans run",
	}, []string{"trigger"})

	AlertScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "alert_scan_duration_seconds",
		Help:    "Latency of full alert scans",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
