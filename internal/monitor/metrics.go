package monitor

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	monitorOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "metalhook",
			Subsystem: "monitor",
			Name:      "outcomes_total",
			Help:      "Completion monitor outcomes by result",
		},
		[]string{"result"},
	)

	monitorDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "metalhook",
			Subsystem: "monitor",
			Name:      "duration_seconds",
			Help:      "Time from monitor start to conclusion in seconds",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~68min
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(monitorOutcomes, monitorDuration)
}

func recordMonitorOutcome(result string, duration time.Duration) {
	monitorOutcomes.WithLabelValues(result).Inc()
	monitorDuration.WithLabelValues(result).Observe(duration.Seconds())
}
