package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// RateLimiter is a sliding-window per-IP limiter. Used on the login route to
// slow down credential guessing.
type RateLimiter struct {
	requests map[string][]time.Time
	mutex    sync.Mutex
	limit    int
	window   time.Duration
}

func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	rl := &RateLimiter{
		requests: make(map[string][]time.Time),
		limit:    limit,
		window:   window,
	}

	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		for range ticker.C {
			rl.cleanup()
		}
	}()

	return rl
}

func (rl *RateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()

		rl.mutex.Lock()
		now := time.Now()
		cutoff := now.Add(-rl.window)

		var recent []time.Time
		for _, at := range rl.requests[clientIP] {
			if at.After(cutoff) {
				recent = append(recent, at)
			}
		}

		if len(recent) >= rl.limit {
			rl.requests[clientIP] = recent
			rl.mutex.Unlock()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Too many requests, try again later",
			})
			c.Abort()
			return
		}

		rl.requests[clientIP] = append(recent, now)
		rl.mutex.Unlock()

		c.Next()
	}
}

func (rl *RateLimiter) cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	cutoff := time.Now().Add(-rl.window)
	for ip, requests := range rl.requests {
		var recent []time.Time
		for _, at := range requests {
			if at.After(cutoff) {
				recent = append(recent, at)
			}
		}
		if len(recent) == 0 {
			delete(rl.requests, ip)
		} else {
			rl.requests[ip] = recent
		}
	}
}
