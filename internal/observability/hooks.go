package observability

import (
	"context"
	"strconv"
	"time"

	"gochat/internal/llmclient"
)

// NewPrometheusHooks returns llmclient hooks that record provider metrics.
func NewPrometheusHooks() llmclient.Hooks {
	return llmclient.Hooks{
		OnRequestEnd: func(_ context.Context, info llmclient.RequestInfo, statusCode int, err error, duration time.Duration) {
			ProviderRequestsTotal.WithLabelValues(info.Provider, info.Endpoint, statusLabel(statusCode, err)).Inc()
			ProviderLatency.WithLabelValues(info.Provider, info.Endpoint, strconv.FormatBool(info.Stream)).Observe(duration.Seconds())
		},
	}
}

func statusLabel(statusCode int, err error) string {
	if statusCode == 0 {
		if err != nil {
			return "network_error"
		}
		return "unknown"
	}
	return strconv.Itoa(statusCode)
}
