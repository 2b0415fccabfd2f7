package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimiter applies a token bucket per client IP. Buckets idle past the
// cleanup age are evicted to keep memory bounded.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBucket
	rps      rate.Limit
	burst    int
	maxIdle  time.Duration
	lastSeen func() time.Time
}

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients:  make(map[string]*clientBucket),
		rps:      rate.Limit(rps),
		burst:    burst,
		maxIdle:  10 * time.Minute,
		lastSeen: time.Now,
	}
}

// Handler returns the gin middleware. Exhausted buckets answer 429 with a
// Retry-After hint.
func (rl *RateLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
			})
			return
		}
		c.Next()
	}
}

func (rl *RateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.lastSeen()
	bucket, ok := rl.clients[clientIP]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(rl.rps, rl.burst)}
		rl.clients[clientIP] = bucket
	}
	bucket.lastSeen = now

	// Opportunistic cleanup piggybacked on lookups.
	if len(rl.clients) > 1024 {
		for ip, b := range rl.clients {
			if now.Sub(b.lastSeen) > rl.maxIdle {
				delete(rl.clients, ip)
			}
		}
	}

	return bucket.limiter.Allow()
}
