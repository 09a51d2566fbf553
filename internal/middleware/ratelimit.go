// Package middleware provides HTTP middleware for tasktrail.
package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// maxBuckets is the maximum number of tracked clients to prevent memory exhaustion.
const maxBuckets = 100_000

// RateLimiter implements a token bucket rate limiter keyed by client IP or,
// for authenticated routes, by user id.
type RateLimiter struct {
	buckets map[string]*bucket
	mu      sync.Mutex
	rate    float64
	burst   float64
}

// bucket holds fractional tokens so slow rates still refill between requests.
type bucket struct {
	tokens   float64
	lastFill time.Time
}

func (rl *RateLimiter) allow(b *bucket, now time.Time) bool {
	b.tokens += now.Sub(b.lastFill).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.lastFill = now

	if b.tokens >= 1 {
		b.tokens--

		return true
	}

	return false
}

// NewRateLimiter creates a RateLimiter with the given requests per second and burst size.
// It starts a background goroutine to evict stale buckets, which stops when ctx is cancelled.
func NewRateLimiter(ctx context.Context, ratePerSec, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    float64(ratePerSec),
		burst:   float64(burst),
	}
	go rl.startCleanup(ctx)

	return rl
}

// startCleanup periodically evicts stale rate-limit buckets.
func (rl *RateLimiter) startCleanup(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	const maxAge = 10 * time.Minute

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			rl.mu.Lock()
			for key, b := range rl.buckets {
				if now.Sub(b.lastFill) > maxAge {
					delete(rl.buckets, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// take consumes one token for key, reporting whether the request may proceed
// and, when it may not, the error message to send.
func (rl *RateLimiter) take(key string) (bool, string) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok {
		// Reject new clients when the bucket table is full to prevent memory exhaustion.
		if len(rl.buckets) >= maxBuckets {
			return false, "too many clients"
		}

		b = &bucket{tokens: rl.burst, lastFill: now}
		rl.buckets[key] = b
	}

	if !rl.allow(b, now) {
		return false, "rate limit exceeded"
	}

	return true, ""
}

func (rl *RateLimiter) limit(c *gin.Context, key string) {
	if ok, msg := rl.take(key); !ok {
		respondError(c, http.StatusTooManyRequests, codeRateLimited, msg)

		return
	}

	c.Next()
}

// Handler returns Gin middleware that applies rate limiting per client IP.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		// c.ClientIP() is safe from X-Forwarded-For spoofing because
		// SetTrustedProxies(nil) in router.go disables proxy header trust.
		rl.limit(c, "ip:"+c.ClientIP())
	}
}

// PerUser returns Gin middleware that rate limits per authenticated user.
// It must run after AuthMiddleware; anonymous requests fall back to the client IP.
func (rl *RateLimiter) PerUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetString(UserIDKey); userID != "" {
			rl.limit(c, "user:"+userID)

			return
		}

		rl.limit(c, "ip:"+c.ClientIP())
	}
}
