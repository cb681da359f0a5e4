package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetLeaderboard ranks the players of a room by total payout.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	code := c.Param("code")

	board, err := h.Rooms.Leaderboard(c.Request.Context(), code)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"room_code":   code,
		"leaderboard": board,
	})
}
