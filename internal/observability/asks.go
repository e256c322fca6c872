package observability

import "time"

// AskMetrics records ask lifecycle metrics. It satisfies engine.Observer.
type AskMetrics struct{}

// AskStarted marks an ask as in flight.
func (AskMetrics) AskStarted(string) {
	AsksInFlight.Inc()
}

// AskFinished records the outcome of an ask.
func (AskMetrics) AskFinished(mode, outcome string, duration time.Duration) {
	AsksInFlight.Dec()
	AsksTotal.WithLabelValues(mode, outcome).Inc()
	AskDuration.WithLabelValues(mode).Observe(duration.Seconds())
}
