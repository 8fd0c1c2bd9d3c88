package assignment

import "github.com/prometheus/client_golang/prometheus"

var assignedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "support_hub_auto_assigned_total",
		Help: "Total conversations auto-assigned to an agent, by strategy.",
	},
	[]string{"strategy"},
)

func init() {
	prometheus.MustRegister(assignedTotal)
}

func incAssigned(strategy string) {
	assignedTotal.WithLabelValues(strategy).Inc()
}
