package ws

import (
	"context"
	"errors"
	"net/http"

	"mines_arena/internal/domain"
	"mines_arena/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// RoomFinder resolves a join code to an open room and reads rooms back by id.
type RoomFinder interface {
	JoinRoom(ctx context.Context, code string) (*domain.Room, error)
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
}

// HandleWS upgrades GET /ws/rooms/:code?token=... into a room event stream.
func HandleWS(hub *Hub, rooms RoomFinder, allowedOrigin string) gin.HandlerFunc {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			if allowedOrigin == "" {
				return true
			}
			return r.Header.Get("Origin") == allowedOrigin
		},
	}

	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token required"})
			return
		}

		id, err := service.ParseJWT(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		code := c.Param("code")
		room, err := rooms.JoinRoom(c.Request.Context(), code)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrNotFound):
				c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			case errors.Is(err, domain.ErrRoomClosed):
				c.JSON(http.StatusConflict, gin.H{"error": "room is closed"})
			default:
				c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
			}
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			hub.log.Warn("ws upgrade error", "error", err)
			return
		}

		client := NewClient(id.PlayerID, room, conn, hub)
		client.Subscribe()

		// a close that landed before the subscription published to nobody
		if current, err := rooms.GetRoom(c.Request.Context(), room.ID); err != nil || current.Closed {
			hub.Unsubscribe(client)
		}
		go client.Run()
	}
}
