package handoff

import "github.com/prometheus/client_golang/prometheus"

var (
	webhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_hub_handoff_webhook_events_total",
			Help: "Webhook events processed by type.",
		},
		[]string{"type"},
	)
	webhookIgnored = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_hub_handoff_webhook_ignored_total",
			Help: "Webhook payloads ignored as malformed or unknown.",
		},
		[]string{"reason"},
	)
)

func init() {
	prometheus.MustRegister(webhookEvents, webhookIgnored)
}

func incEvent(eventType string) {
	webhookEvents.WithLabelValues(eventType).Inc()
}

func incIgnored(reason string) {
	webhookIgnored.WithLabelValues(reason).Inc()
}
