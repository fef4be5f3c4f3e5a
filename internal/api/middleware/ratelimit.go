package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/liliang-cn/askstream/internal/domain"
	"golang.org/x/time/rate"
)

// RateLimiter hands out one token bucket per widget token
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

// NewRateLimiter allows requestsPerHour per token with the given burst
func NewRateLimiter(requestsPerHour, burst int) *RateLimiter {
	if burst <= 0 {
		burst = 1
	}
	limit := rate.Inf
	if requestsPerHour > 0 {
		limit = rate.Every(time.Hour / time.Duration(requestsPerHour))
	}
	return &RateLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether a request for key may proceed now
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[key]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// RateLimit rejects requests over the per-token budget with 429
func RateLimit(l *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.Next()
			return
		}
		if !l.Allow(c.Param("token")) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, domain.ErrorBody{Message: domain.ErrRateLimited.Error()})
			return
		}
		c.Next()
	}
}
