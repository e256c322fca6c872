// Package observability provides Prometheus metrics for completion requests,
// asks and the HTTP surface.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LatencyBuckets suit completion latencies, from 100ms to 120s.
var LatencyBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// ProviderRequestsTotal counts requests sent to the completion endpoint.
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gochat_provider_requests_total",
			Help: "Requests sent to the completion provider",
		},
		[]string{"provider", "endpoint", "status"},
	)

	// ProviderLatency records time to response headers in seconds.
	ProviderLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gochat_provider_latency_seconds",
			Help:    "Provider latency until response headers",
			Buckets: LatencyBuckets,
		},
		[]string{"provider", "endpoint", "stream"},
	)

	// AsksTotal counts finished asks by mode and outcome.
	AsksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gochat_asks_total",
			Help: "Finished asks",
		},
		[]string{"mode", "outcome"},
	)

	// AskDuration records full ask duration, including the streamed body.
	AskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gochat_ask_duration_seconds",
			Help:    "Ask duration",
			Buckets: LatencyBuckets,
		},
		[]string{"mode"},
	)

	// AsksInFlight tracks asks awaiting their answer.
	AsksInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "gochat_asks_in_flight",
			Help: "Asks awaiting an answer",
		},
	)

	// HTTPRequestsTotal counts requests served by the HTTP surface.
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gochat_http_requests_total",
			Help: "HTTP requests served",
		},
		[]string{"method", "route", "status"},
	)
)

func init() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderLatency,
		AsksTotal,
		AskDuration,
		AsksInFlight,
		HTTPRequestsTotal,
	)
}
