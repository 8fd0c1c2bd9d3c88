package outbound

import (
	"context"
	"fmt"
	"time"

	"support-hub-backend/internal/throttle"
)

// GuardedSender wraps a Sender with the per-tenant token bucket, the
// daily quota bucket and the circuit breaker. The breaker does not
// intercept anything itself, so the order here is the contract: check
// IsOpen before the attempt, record the outcome after every attempt.
type GuardedSender struct {
	inner   Sender
	limiter *throttle.Limiter
	quota   *throttle.Limiter
	breaker *throttle.Breaker
}

func NewGuardedSender(inner Sender, limiter, quota *throttle.Limiter, breaker *throttle.Breaker) *GuardedSender {
	return &GuardedSender{
		inner:   inner,
		limiter: limiter,
		quota:   quota,
		breaker: breaker,
	}
}

func (g *GuardedSender) Send(ctx context.Context, msg Message) error {
	key := guardKey(msg.TenantID)

	if g.limiter != nil && !g.limiter.TryConsume(key, 1) {
		return ErrRateLimited
	}
	// An open breaker means no send will happen, so it must not cost a
	// quota token.
	if g.breaker != nil && g.breaker.IsOpen(key) {
		return ErrCircuitOpen
	}
	if g.quota != nil && !g.quota.TryConsume(key, 1) {
		return ErrQuotaExceeded
	}

	err := g.inner.Send(ctx, msg)
	if g.breaker != nil {
		if err != nil {
			g.breaker.RecordFailure(key)
		} else {
			g.breaker.RecordSuccess(key)
		}
	}
	if err != nil {
		return fmt.Errorf("outbound send: %w", err)
	}
	return nil
}

func (g *GuardedSender) Close() error {
	return g.inner.Close()
}

func guardKey(tenantID string) string {
	return "outbound:" + tenantID
}

// DailyQuota builds a quota limiter: quota sends per tenant per 24h
// window, full reset on elapse like every bucket here.
func DailyQuota(quotaFor func(tenantID string) int) *throttle.Limiter {
	return throttle.NewLimiter(func(key string) (int, time.Duration) {
		tenantID := key
		if len(key) > len("outbound:") {
			tenantID = key[len("outbound:"):]
		}
		return quotaFor(tenantID), 24 * time.Hour
	})
}
