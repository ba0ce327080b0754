package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// Limiter is the injected rate-limiting collaborator. Keys are viewer ids,
// falling back to client IP for anonymous requests.
type Limiter interface {
	Allow(key string) bool
}

type tokenBucketLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
	rate    rate.Limit
	burst   int
}

// NewTokenBucketLimiter allows perMinute requests sustained with the given
// burst, tracked per key.
func NewTokenBucketLimiter(perMinute, burst int) Limiter {
	return &tokenBucketLimiter{
		buckets: make(map[string]*rate.Limiter),
		rate:    rate.Limit(float64(perMinute) / 60.0),
		burst:   burst,
	}
}

func (l *tokenBucketLimiter) Allow(key string) bool {
	l.mu.Lock()
	b, ok := l.buckets[key]
	if !ok {
		b = rate.NewLimiter(l.rate, l.burst)
		l.buckets[key] = b
	}
	l.mu.Unlock()
	return b.Allow()
}

// RateLimit rejects requests over the limiter's budget with 429. A nil
// limiter disables limiting (tests, internal callers).
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}

		key := c.GetString("user_id")
		if key == "" {
			key = c.ClientIP()
		}

		if !l.Allow(key) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}
		c.Next()
	}
}
