package throttle

import (
	"sync"
	"time"
)

type breakerState struct {
	mu           sync.Mutex
	failures     int
	threshold    int
	timeout      time.Duration
	trippedAt    time.Time
}

// Breaker tracks consecutive failures per endpoint key and suppresses
// calls for a cooldown after the threshold is hit. Open is computed from
// the trip timestamp, never stored as a flag: once the timeout elapses
// the breaker is implicitly half-open and the next attempt decides
// whether it re-closes or re-trips. The breaker does not intercept calls;
// callers check IsOpen before the attempt and record the outcome after.
type Breaker struct {
	mu        sync.Mutex
	states    map[string]*breakerState
	threshold int
	timeout   time.Duration
	now       func() time.Time
}

func NewBreaker(threshold int, timeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Breaker{
		states:    make(map[string]*breakerState),
		threshold: threshold,
		timeout:   timeout,
		now:       time.Now,
	}
}

func (b *Breaker) stateFor(key string) *breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, ok := b.states[key]
	if !ok {
		s = &breakerState{threshold: b.threshold, timeout: b.timeout}
		b.states[key] = s
	}
	return s
}

// IsOpen reports whether the key's breaker is currently suppressing calls.
func (b *Breaker) IsOpen(key string) bool {
	s := b.stateFor(key)
	now := b.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.trippedAt.IsZero() && now.Before(s.trippedAt.Add(s.timeout))
}

// RecordFailure counts one failed attempt; hitting the threshold trips
// the breaker and restarts the cooldown.
func (b *Breaker) RecordFailure(key string) {
	s := b.stateFor(key)
	now := b.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	if s.failures >= s.threshold {
		s.trippedAt = now
		incBreakerTripped(key)
	}
}

// RecordSuccess closes the breaker and clears the failure streak.
func (b *Breaker) RecordSuccess(key string) {
	s := b.stateFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = 0
	s.trippedAt = time.Time{}
}

// Failures returns the current consecutive failure count for key.
func (b *Breaker) Failures(key string) int {
	s := b.stateFor(key)

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.failures
}

// SetClock replaces the time source. Tests only.
func (b *Breaker) SetClock(now func() time.Time) {
	if now != nil {
		b.now = now
	}
}
