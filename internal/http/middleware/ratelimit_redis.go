package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"mines_arena/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// UseRedis shares a client with the rate limiters. A nil client (or one that does not
// answer a ping) leaves them on the in-process fallback.
func UseRedis(client *redis.Client) {
	if client == nil {
		redisClient = nil
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, rate limits are per instance", "error", err)
		redisClient = nil
		return
	}
	redisClient = client
}

// fixedWindow counts a hit on key and reports whether it is within max for the window.
func fixedWindow(ctx context.Context, key string, max int, window time.Duration) (count int64, allowed bool, err error) {
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, true, err
	}
	if val == 1 {
		redisClient.Expire(ctx, key, window)
	}
	return val, val <= int64(max), nil
}

// RedisRateLimit implements a fixed-window rate limiter per client IP using Redis INCR/EXPIRE.
// key format: rl:<window_seconds>:<ip>
func RedisRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	local := newLimiterSet(maxRequests, window)

	return func(c *gin.Context) {
		ident := c.ClientIP()

		if redisClient == nil {
			if !local.allow(ident) {
				RLBlocked.WithLabelValues(c.FullPath()).Inc()
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
				return
			}
			RLRequests.WithLabelValues(c.FullPath()).Inc()
			c.Next()
			return
		}

		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + ident
		_, allowed, err := fixedWindow(c.Request.Context(), key, maxRequests, window)
		if err != nil {
			// fail open
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}

		if !allowed {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
