package handlers

import (
	"log/slog"

	"mines_arena/internal/http/middleware"
	"mines_arena/internal/logger"
	"mines_arena/internal/service"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	Rooms *service.RoomService
	Games *service.GameService
	log   *slog.Logger
}

func NewHandler(rooms *service.RoomService, games *service.GameService) *Handler {
	return &Handler{
		Rooms: rooms,
		Games: games,
		log:   logger.Component("http"),
	}
}

// playerID extracts the caller set by the JWT middleware.
func playerID(c *gin.Context) (string, bool) {
	id := c.GetString(middleware.CtxPlayerID)
	return id, id != ""
}

func isStaff(c *gin.Context) bool {
	role := c.GetString(middleware.CtxRole)
	return role == service.RoleAdmin || role == service.RoleOwner
}
