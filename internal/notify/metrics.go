package notify

import "github.com/prometheus/client_golang/prometheus"

var deliveriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "metalhook",
		Subsystem: "notify",
		Name:      "deliveries_total",
		Help:      "Outcome deliveries by sink and result",
	},
	[]string{"sink", "result"},
)

func init() {
	prometheus.MustRegister(deliveriesTotal)
}

func recordDelivery(sink, result string) {
	deliveriesTotal.WithLabelValues(sink, result).Inc()
}
