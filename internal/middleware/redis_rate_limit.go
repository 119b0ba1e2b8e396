package middleware

import (
	"context"
	"math"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/zfogg/sidechain/views/internal/cache"
	"github.com/zfogg/sidechain/views/internal/errors"
	"github.com/zfogg/sidechain/views/internal/logger"
	"github.com/zfogg/sidechain/views/internal/util"
	"go.uber.org/zap"
)

// Limiter is the subset of the Redis client used for distributed limits
type Limiter interface {
	AllowN(ctx context.Context, key string, max int, window time.Duration) (bool, time.Duration, error)
}

var _ Limiter = (*cache.RedisClient)(nil)

// RedisRateLimitMiddleware limits requests across instances using Redis.
// When limiter is nil it falls back to an in-memory limiter per process.
func RedisRateLimitMiddleware(limiter Limiter, config RateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = requesterKey
	}
	if limiter == nil {
		logger.Log.Warn("Redis rate limiter unavailable, using in-memory limits",
			zap.Int("limit", config.Limit),
			zap.Duration("window", config.Window),
		)
		return NewRateLimiter(config).Middleware()
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)
		ctx, cancel := context.WithTimeout(c.Request.Context(), 500*time.Millisecond)
		defer cancel()

		allowed, retryAfter, err := limiter.AllowN(ctx, key, config.Limit, config.Window)
		if err != nil {
			// Fail closed: a broken limiter must not open the write path
			logger.Log.Error("Rate limit check failed, rejecting request",
				zap.String("key", key),
				zap.Error(err),
			)
			util.RespondWithAPIError(c, errors.ServiceUnavailable("rate limiter"))
			return
		}

		if !allowed {
			rejectRateLimited(c, config.Limit, int(math.Ceil(retryAfter.Seconds())))
			return
		}

		c.Next()
	}
}
