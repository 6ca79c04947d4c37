package middleware

import (
	"fmt"
	"testing"
	"time"
)

func TestTTLRateLimiterAllowsWithinLimit(t *testing.T) {
	rl := NewTTLRateLimiter(3, time.Minute, 100)
	for i := 0; i < 3; i++ {
		if !rl.Allow("user-1") {
			t.Fatalf("hit %d should be allowed", i+1)
		}
	}
	if rl.Allow("user-1") {
		t.Error("4th hit within the window should be denied")
	}
	// other keys are unaffected
	if !rl.Allow("user-2") {
		t.Error("an unrelated key must not be throttled")
	}
}

func TestTTLRateLimiterWindowExpiry(t *testing.T) {
	rl := NewTTLRateLimiter(1, 30*time.Millisecond, 100)
	if !rl.Allow("user-1") {
		t.Fatal("first hit")
	}
	if rl.Allow("user-1") {
		t.Fatal("second hit inside the window")
	}
	time.Sleep(50 * time.Millisecond)
	if !rl.Allow("user-1") {
		t.Error("window elapsed, hit should be allowed again")
	}
}

func TestTTLRateLimiterBounded(t *testing.T) {
	rl := NewTTLRateLimiter(10, time.Minute, 5)
	for i := 0; i < 5; i++ {
		if !rl.Allow(fmt.Sprintf("key-%d", i)) {
			t.Fatalf("key %d should fit", i)
		}
	}
	if rl.Allow("key-overflow") {
		t.Error("new key past maxKeys should be rejected, not grow the map")
	}
	if rl.Len() != 5 {
		t.Errorf("Len = %d, want 5", rl.Len())
	}
	// existing keys still work at capacity
	if !rl.Allow("key-0") {
		t.Error("existing key should still be counted at capacity")
	}
}

func TestTTLRateLimiterSweepFreesRoom(t *testing.T) {
	rl := NewTTLRateLimiter(1, 20*time.Millisecond, 100)
	rl.Allow("short-lived")
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if rl.Len() == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("sweep never evicted the expired bucket")
}
