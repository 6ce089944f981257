package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/BelikanM/cub/internal/errors"
	"github.com/BelikanM/cub/internal/logger"
	"github.com/BelikanM/cub/internal/util"
)

// WindowCounter counts hits per key in fixed windows
type WindowCounter interface {
	IncrWindow(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RedisRateLimitMiddleware is a fixed window limiter shared by every
// server instance
func RedisRateLimitMiddleware(counter WindowCounter, name string, config RateLimitConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := fmt.Sprintf("rate_limit:%s:%s", name, config.key(c))
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		n, err := counter.IncrWindow(ctx, key, config.Window)
		if err != nil {
			logger.Log.Error("Rate limit check failed, rejecting request",
				logger.WithIP(c.ClientIP()),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			return
		}
		if n > int64(config.Limit) {
			logger.Log.Warn("Rate limit exceeded",
				logger.WithIP(c.ClientIP()),
				zap.Int("max_requests", config.Limit),
				zap.Int64("current_requests", n),
			)
			rejectRateLimited(c, config.Limit, int(config.Window.Seconds()))
			return
		}
		c.Next()
	}
}

// RateLimit uses Redis when counter is set, else an in-memory limiter
func RateLimit(counter WindowCounter, name string, config RateLimitConfig) gin.HandlerFunc {
	if counter == nil {
		return NewRateLimiter(config)
	}
	return RedisRateLimitMiddleware(counter, name, config)
}
