package throttle

import (
	"testing"
	"time"
)

func TestTryConsumeExhaustsAndRefills(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewFixedLimiter(5, time.Second)
	limiter.SetClock(func() time.Time { return now })

	for i := 0; i < 5; i++ {
		if !limiter.TryConsume("outbound:tenant-1", 1) {
			t.Fatalf("consume %d should be allowed", i+1)
		}
	}
	if limiter.TryConsume("outbound:tenant-1", 1) {
		t.Fatal("6th consume should be denied")
	}

	now = now.Add(time.Second)
	if !limiter.TryConsume("outbound:tenant-1", 1) {
		t.Fatal("consume after refill interval should be allowed")
	}
}

func TestRefillResetsToFullCapacity(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewFixedLimiter(3, time.Second)
	limiter.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		limiter.TryConsume("k", 1)
	}

	now = now.Add(time.Second)
	for i := 0; i < 3; i++ {
		if !limiter.TryConsume("k", 1) {
			t.Fatalf("consume %d after refill should be allowed", i+1)
		}
	}
	if limiter.TryConsume("k", 1) {
		t.Fatal("bucket should be empty again")
	}
}

func TestBucketsAreIndependentPerKey(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewFixedLimiter(1, time.Minute)
	limiter.SetClock(func() time.Time { return now })

	if !limiter.TryConsume("a", 1) {
		t.Fatal("first consume on a should succeed")
	}
	if limiter.TryConsume("a", 1) {
		t.Fatal("second consume on a should be denied")
	}
	if !limiter.TryConsume("b", 1) {
		t.Fatal("key b should not share key a's bucket")
	}
}

func TestPerKeyCapacity(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	limiter := NewLimiter(func(key string) (int, time.Duration) {
		if key == "big" {
			return 10, time.Second
		}
		return 1, time.Second
	})
	limiter.SetClock(func() time.Time { return now })

	for i := 0; i < 10; i++ {
		if !limiter.TryConsume("big", 1) {
			t.Fatalf("big consume %d should be allowed", i+1)
		}
	}
	if !limiter.TryConsume("small", 1) {
		t.Fatal("small first consume should be allowed")
	}
	if limiter.TryConsume("small", 1) {
		t.Fatal("small second consume should be denied")
	}
}
