package throttle

import "github.com/prometheus/client_golang/prometheus"

var (
	rateLimitedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_hub_rate_limited_total",
			Help: "Total calls denied by the token bucket limiter.",
		},
		[]string{"key"},
	)
	breakerTrippedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "support_hub_breaker_tripped_total",
			Help: "Total circuit breaker trips.",
		},
		[]string{"key"},
	)
)

func init() {
	prometheus.MustRegister(rateLimitedTotal, breakerTrippedTotal)
}

func incRateLimited(key string) {
	rateLimitedTotal.WithLabelValues(key).Inc()
}

func incBreakerTripped(key string) {
	breakerTrippedTotal.WithLabelValues(key).Inc()
}
