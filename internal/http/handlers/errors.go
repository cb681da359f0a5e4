package handlers

import (
	"errors"
	"net/http"

	"mines_arena/internal/domain"

	"github.com/gin-gonic/gin"
)

// respondError maps engine errors onto HTTP statuses. Anything unrecognised is a 500.
func (h *Handler) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidParameter), errors.Is(err, domain.ErrInvalidMove):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrRoomClosed), errors.Is(err, domain.ErrIllegalState):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "error", err)
		msg := "internal error"
		if errors.Is(err, domain.ErrInvariantViolation) {
			msg = "game state is inconsistent"
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
