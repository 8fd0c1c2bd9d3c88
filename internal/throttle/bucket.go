package throttle

import (
	"sync"
	"time"
)

// bucket is the per-key token state. Refill is a full reset to capacity
// on interval elapse rather than a gradual drip; cheaper to reason about
// than a leaky bucket and close enough for endpoint throttling.
type bucket struct {
	mu         sync.Mutex
	maxTokens  int
	interval   time.Duration
	tokens     int
	lastRefill time.Time
}

// Limiter keeps one token bucket per logical endpoint key. All state is
// process-local; the interface is small enough to back with a shared
// store later without touching call sites.
type Limiter struct {
	mu       sync.Mutex
	buckets  map[string]*bucket
	maxFor   func(key string) (maxTokens int, interval time.Duration)
	now      func() time.Time
}

// NewLimiter builds a limiter whose per-key capacity comes from maxFor,
// evaluated when a key is first seen.
func NewLimiter(maxFor func(key string) (int, time.Duration)) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		maxFor:  maxFor,
		now:     time.Now,
	}
}

// NewFixedLimiter builds a limiter with the same capacity for every key.
func NewFixedLimiter(maxTokens int, interval time.Duration) *Limiter {
	return NewLimiter(func(string) (int, time.Duration) {
		return maxTokens, interval
	})
}

func (l *Limiter) bucketFor(key string) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		maxTokens, interval := l.maxFor(key)
		if maxTokens <= 0 {
			maxTokens = 1
		}
		if interval <= 0 {
			interval = time.Second
		}
		b = &bucket{
			maxTokens:  maxTokens,
			interval:   interval,
			tokens:     maxTokens,
			lastRefill: l.now(),
		}
		l.buckets[key] = b
	}
	return b
}

// TryConsume takes n tokens from the key's bucket. Refill runs lazily
// before the take; there is no background timer.
func (l *Limiter) TryConsume(key string, n int) bool {
	if n <= 0 {
		n = 1
	}
	b := l.bucketFor(key)
	now := l.now()

	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.lastRefill) >= b.interval {
		b.tokens = b.maxTokens
		b.lastRefill = now
	}

	if b.tokens < n {
		incRateLimited(key)
		return false
	}
	b.tokens -= n
	return true
}

// Reset drops the bucket for key so the next call re-reads its capacity.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// SetClock replaces the time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	if now != nil {
		l.now = now
	}
}
