package server

import "github.com/prometheus/client_golang/prometheus"

var (
	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metalhook",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Webhook events by type and handling result",
		},
		[]string{"event_type", "result"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metalhook",
			Subsystem: "webhook",
			Name:      "request_duration_seconds",
			Help:      "Webhook request handling duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~2.5s
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(eventsTotal, requestDuration)
}

func recordEvent(eventType, result string, seconds float64) {
	if eventType == "" {
		eventType = "unknown"
	}
	eventsTotal.WithLabelValues(eventType, result).Inc()
	requestDuration.WithLabelValues(result).Observe(seconds)
}
