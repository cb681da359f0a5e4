package middleware

import (
	"net/http"
	"slices"
	"strings"

	"mines_arena/internal/service"

	"github.com/gin-gonic/gin"
)

// Context keys set by JWT.
const (
	CtxPlayerID = "player_id"
	CtxRole     = "role"
)

// JWT accepts "Authorization: Bearer <token>" and stores the player id and role in the context.
func JWT() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		id, err := service.ParseJWT(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		c.Set(CtxPlayerID, id.PlayerID)
		c.Set(CtxRole, id.Role)
		c.Next()
	}
}

// RequireRole lets through callers whose role claim is one of roles. Runs after JWT.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, c.GetString(CtxRole)) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
