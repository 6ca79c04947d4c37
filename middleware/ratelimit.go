package middleware

import (
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RateLimiter counts hits per key within a rolling window. Implementations
// must be safe for concurrent use and bounded in memory.
type RateLimiter interface {
	Allow(key string) bool
}

type bucket struct {
	count     int
	expiresAt time.Time
}

// TTLRateLimiter is a bounded, TTL-evicting hit counter. It is constructed
// once in main and passed by reference — never a module-level map. Expired
// buckets are dropped on access and by a periodic sweep; when the map hits
// maxKeys, new keys are rejected until the sweep frees room, so a key flood
// cannot grow memory without bound.
type TTLRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	limit   int
	window  time.Duration
	maxKeys int
}

func NewTTLRateLimiter(limit int, window time.Duration, maxKeys int) *TTLRateLimiter {
	if maxKeys < 1 {
		maxKeys = 10000
	}
	rl := &TTLRateLimiter{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		maxKeys: maxKeys,
	}
	go rl.sweep()
	return rl
}

func (rl *TTLRateLimiter) Allow(key string) bool {
	now := time.Now()
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || now.After(b.expiresAt) {
		if !ok && len(rl.buckets) >= rl.maxKeys {
			return false
		}
		rl.buckets[key] = &bucket{count: 1, expiresAt: now.Add(rl.window)}
		return true
	}
	if b.count >= rl.limit {
		return false
	}
	b.count++
	return true
}

func (rl *TTLRateLimiter) sweep() {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		for key, b := range rl.buckets {
			if now.After(b.expiresAt) {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// Len reports the number of live buckets.
func (rl *TTLRateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// SubmissionRateLimit throttles per-user submission creation.
func SubmissionRateLimit(limiter RateLimiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			userID = c.IP()
		}
		if !limiter.Allow(userID) {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many submissions, slow down",
			})
		}
		return c.Next()
	}
}
