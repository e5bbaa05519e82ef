package middleware

import (
	"net/http"
	"strconv"
	"time"

	"submission-portal-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware caps requests per client IP across the routes it wraps.
// Limiter errors let the request through.
func RateLimitMiddleware(limiter services.RateLimiter, logger *zap.Logger) gin.HandlerFunc {
	denied := &rate.Sometimes{First: 1, Interval: time.Minute}

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		key := c.ClientIP()
		decision, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			logger.Warn("api rate limiter unavailable", zap.String("client_ip", key), zap.Error(err))
			c.Next()
			return
		}
		if !decision.Allowed {
			rl := &services.RateLimitError{RetryAfter: decision.RetryAfter}
			denied.Do(func() {
				logger.Warn("api rate limit exceeded", zap.String("client_ip", key))
			})
			c.Header("Retry-After", strconv.Itoa(rl.RetryAfterSeconds()))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"message":    "Too many requests. Please try again later.",
				"retryAfter": rl.RetryAfterSeconds(),
			})
			return
		}

		c.Header("X-RateLimit-Remaining", strconv.Itoa(decision.Remaining))
		c.Next()
	}
}
