package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payadmin_http_requests_total",
		Help: "HTTP requests handled, by method and status.",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "payadmin_http_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	upstreamRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "payadmin_upstream_rejections_total",
		Help: "Upstream non-2xx responses surfaced to clients, by error code.",
	}, []string{"code"})
)
