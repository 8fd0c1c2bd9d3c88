package throttle

import (
	"testing"
	"time"
)

func TestBreakerTripsAfterThreshold(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	breaker := NewBreaker(3, 30*time.Second)
	breaker.SetClock(func() time.Time { return now })

	breaker.RecordFailure("sms")
	breaker.RecordFailure("sms")
	if breaker.IsOpen("sms") {
		t.Fatal("breaker should still be closed after two failures")
	}

	breaker.RecordFailure("sms")
	if !breaker.IsOpen("sms") {
		t.Fatal("breaker should be open after three failures")
	}
}

func TestBreakerHalfOpensAfterTimeout(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	breaker := NewBreaker(3, 30*time.Second)
	breaker.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		breaker.RecordFailure("sms")
	}
	if !breaker.IsOpen("sms") {
		t.Fatal("breaker should be open")
	}

	now = now.Add(31 * time.Second)
	if breaker.IsOpen("sms") {
		t.Fatal("breaker should allow a probe after the timeout")
	}
}

func TestRecordSuccessResetsFailures(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	breaker := NewBreaker(3, 30*time.Second)
	breaker.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		breaker.RecordFailure("sms")
	}
	now = now.Add(31 * time.Second)

	breaker.RecordSuccess("sms")
	if breaker.Failures("sms") != 0 {
		t.Fatalf("failures should be 0 after success, got %d", breaker.Failures("sms"))
	}
	if breaker.IsOpen("sms") {
		t.Fatal("breaker should be closed after success")
	}
}

func TestHalfOpenFailureRetrips(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	breaker := NewBreaker(3, 30*time.Second)
	breaker.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		breaker.RecordFailure("sms")
	}
	now = now.Add(31 * time.Second)
	if breaker.IsOpen("sms") {
		t.Fatal("expected half-open window")
	}

	// Failed probe re-trips with a fresh cooldown.
	breaker.RecordFailure("sms")
	if !breaker.IsOpen("sms") {
		t.Fatal("breaker should re-open after a failed probe")
	}
}

func TestBreakersAreIndependentPerKey(t *testing.T) {
	breaker := NewBreaker(1, time.Minute)

	breaker.RecordFailure("sms")
	if !breaker.IsOpen("sms") {
		t.Fatal("sms breaker should be open")
	}
	if breaker.IsOpen("email") {
		t.Fatal("email breaker should not share sms state")
	}
}
