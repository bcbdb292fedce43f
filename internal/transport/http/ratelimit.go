package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/vovakirdan/burnroom/internal/proto"
)

// idleLimiterTTL is how long an unused per-IP limiter is kept.
const idleLimiterTTL = 2 * time.Minute

type ipLimiter struct {
	lim  *rate.Limiter
	seen time.Time
}

type rateLimiter struct {
	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	limit     rate.Limit
	burst     int
	lastSweep time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &rateLimiter{
		limiters: make(map[string]*ipLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
	}
}

func (r *rateLimiter) allow(key string, now time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if now.Sub(r.lastSweep) > idleLimiterTTL {
		for k, l := range r.limiters {
			if now.Sub(l.seen) > idleLimiterTTL {
				delete(r.limiters, k)
			}
		}
		r.lastSweep = now
	}

	l, ok := r.limiters[key]
	if !ok {
		l = &ipLimiter{lim: rate.NewLimiter(r.limit, r.burst)}
		r.limiters[key] = l
	}
	l.seen = now
	return l.lim.AllowN(now, 1)
}

// RateLimit returns a per-client-IP token bucket middleware. rps <= 0
// disables limiting.
func RateLimit(rps float64, burst int) gin.HandlerFunc {
	if rps <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	rl := newRateLimiter(rps, burst)
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP(), time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, proto.ErrorResponse{Error: "too many requests"})
			return
		}
		c.Next()
	}
}
