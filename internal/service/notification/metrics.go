package notification

import "github.com/prometheus/client_golang/prometheus"

var (
	notificationsBroadcast = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_hub_notifications_broadcast_total",
			Help: "Broadcast notifications published to tenant agent rooms.",
		},
		[]string{"type"},
	)
	notificationsTargeted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_hub_notifications_targeted_total",
			Help: "Targeted notifications delivered to individual agents.",
		},
		[]string{"type"},
	)
	notificationsFiltered = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_hub_notifications_filtered_total",
			Help: "Targeted notifications suppressed by agent preferences.",
		},
		[]string{"type"},
	)
	notificationsFailed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_hub_notifications_failed_total",
			Help: "Notification deliveries that errored.",
		},
		[]string{"type"},
	)
)

func init() {
	prometheus.MustRegister(
		notificationsBroadcast,
		notificationsTargeted,
		notificationsFiltered,
		notificationsFailed,
	)
}

func incBroadcast(eventType string) {
	notificationsBroadcast.WithLabelValues(eventType).Inc()
}

func incTargeted(eventType string) {
	notificationsTargeted.WithLabelValues(eventType).Inc()
}

func incFiltered(eventType string) {
	notificationsFiltered.WithLabelValues(eventType).Inc()
}

func incFailed(eventType string) {
	notificationsFailed.WithLabelValues(eventType).Inc()
}
