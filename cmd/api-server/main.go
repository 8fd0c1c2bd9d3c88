package main

import (
	"context"
	"log"
	"strings"
	"time"

	"support-hub-backend/internal/api"
	"support-hub-backend/internal/api/router"
	"support-hub-backend/internal/database"
	"support-hub-backend/internal/env"
	"support-hub-backend/internal/outbound"
	"support-hub-backend/internal/queue"
	"support-hub-backend/internal/service/assignment"
	agentservice "support-hub-backend/internal/service/agent"
	escalationservice "support-hub-backend/internal/service/escalation"
	handoffservice "support-hub-backend/internal/service/handoff"
	"support-hub-backend/internal/service/notification"
	tenantservice "support-hub-backend/internal/service/tenant"
	"support-hub-backend/internal/throttle"
	"support-hub-backend/internal/websocket"
)

func main() {
	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	tenants := tenantservice.New(db)
	agents := agentservice.New(db)
	escalations := escalationservice.New(db)
	engine := assignment.NewEngine(assignment.NewDynamoRepository(db), tenants, escalations, nil)
	fanout := notification.New(notification.PublisherFunc(websocket.Publish), agents, agents)

	sender := buildSender(tenants)
	defer sender.Close()

	handoffs := handoffservice.New(escalations, engine, fanout, sender, env.Get(env.HandoffSecret))

	server := api.NewAPIServer(
		":81",
		queueManager,
		db,
		nil,
		router.UtilsRoutes("/api/v1"),
		router.AgentRoutes("/api/v1", agents, fanout),
		router.TenantRoutes("/api/v1", tenants, agents),
		router.EscalationRoutes("/api/v1", escalations, engine, fanout, agents),
		router.WebhookRoutes("/api/v1", handoffs),
	)

	server.Run()
}

// buildSender assembles the outbound pipeline: AMQP transport behind the
// per-tenant rate limit, daily quota and circuit breaker. Without an
// AMQP URL configured, outbound messages go to the log instead.
func buildSender(tenants *tenantservice.Service) outbound.Sender {
	var inner outbound.Sender
	if url := env.Get(env.OutboundAMQPURL); url != "" {
		amqpSender, err := outbound.NewAMQPSender(url, "")
		if err != nil {
			log.Fatalf("amqp init failed: %v", err)
		}
		inner = amqpSender
	} else {
		log.Println("OUTBOUND_AMQP_URL not set, outbound messages will be logged only")
		inner = outbound.NewLogSender()
	}

	throttlesFor := func(tenantID string) tenantservice.Throttles {
		throttles, err := tenants.ThrottlesFor(context.Background(), tenantID)
		if err != nil {
			return tenantservice.Throttles{
				OutboundPerMinute: tenantservice.DefaultMaxOutboundPerMinute,
				DailyQuota:        tenantservice.DefaultDailyOutboundQuota,
			}
		}
		return throttles
	}

	limiter := throttle.NewLimiter(func(key string) (int, time.Duration) {
		tenantID := strings.TrimPrefix(key, "outbound:")
		return throttlesFor(tenantID).OutboundPerMinute, time.Minute
	})
	quota := outbound.DailyQuota(func(tenantID string) int {
		return throttlesFor(tenantID).DailyQuota
	})
	breaker := throttle.NewBreaker(
		tenantservice.DefaultBreakerFailureThreshold,
		tenantservice.DefaultBreakerTimeoutSeconds*time.Second,
	)

	return outbound.NewGuardedSender(inner, limiter, quota, breaker)
}
