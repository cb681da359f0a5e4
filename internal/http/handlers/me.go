package handlers

import (
	"net/http"

	"mines_arena/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// Me echoes the identity carried by the caller's token.
func (h *Handler) Me(c *gin.Context) {
	player, ok := playerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"player_id": player,
		"role":      c.GetString(middleware.CtxRole),
	})
}
