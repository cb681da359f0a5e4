package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// GameRateLimit limits game actions per player (not per IP). Uses Redis when configured,
// otherwise an in-process token bucket. Requires JWT middleware to run before this.
func GameRateLimit(maxActions int, window time.Duration) gin.HandlerFunc {
	local := newLimiterSet(maxActions, window)

	return func(c *gin.Context) {
		playerID := c.GetString(CtxPlayerID)
		if playerID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var (
			allowed   bool
			remaining int
		)
		if redisClient == nil {
			allowed = local.allow(playerID)
			remaining = local.remaining(playerID)
		} else {
			key := "game_rl:" + playerID + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
			count, ok, err := fixedWindow(c.Request.Context(), key, maxActions, window)
			if err != nil {
				c.Header("X-GameRateLimit-Error", "redis-error")
				c.Next()
				return
			}
			allowed = ok
			remaining = max(0, maxActions-int(count))
		}

		c.Header("X-GameRateLimit-Limit", strconv.Itoa(maxActions))
		c.Header("X-GameRateLimit-Remaining", strconv.Itoa(remaining))

		if !allowed {
			RLBlocked.WithLabelValues("game:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "game rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("game:" + c.FullPath()).Inc()
		c.Next()
	}
}
