package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

type ipLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter returns Gin middleware enforcing per-IP token-bucket rate
// limiting from the spec §6 RATE_LIMIT setting, expressed as "N/minute"
// (default 500/minute, spec §4.2). The bucket's burst size is the full
// per-minute allowance; its steady-state refill rate is perMinute/60 rps,
// floored at 1. Adapted from the teacher's handler.RateLimiter.
func RateLimiter(perMinute int) gin.HandlerFunc {
	if perMinute <= 0 {
		perMinute = 500
	}
	rps := perMinute / 60
	if rps < 1 {
		rps = 1
	}
	burst := perMinute

	var mu sync.Mutex
	limiters := make(map[string]*ipLimiter)

	go func() {
		for {
			time.Sleep(5 * time.Minute)
			mu.Lock()
			for ip, l := range limiters {
				if time.Since(l.lastSeen) > 10*time.Minute {
					delete(limiters, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return func(c *gin.Context) {
		ip := c.ClientIP()

		mu.Lock()
		l, ok := limiters[ip]
		if !ok {
			l = &ipLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
			limiters[ip] = l
		}
		l.lastSeen = time.Now()
		mu.Unlock()

		if !l.limiter.Allow() {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
