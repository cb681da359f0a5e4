package handlers

import (
	"net/http"
	"time"

	"mines_arena/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CreateRoomRequest struct {
	TimeoutMinutes int `json:"timeout_minutes"`
}

type JoinRoomRequest struct {
	Code string `json:"code" binding:"required"`
}

type StartGameRequest struct {
	BetAmount decimal.Decimal `json:"bet_amount"`
	NumMines  int             `json:"num_mines"`
}

func roomView(r *domain.Room) gin.H {
	return gin.H{
		"id":              r.ID,
		"code":            r.Code,
		"created_at":      r.CreatedAt,
		"expires_at":      r.ExpiresAt(),
		"timeout_minutes": r.Timeout.Minutes(),
		"closed":          r.Closed,
		"closed_at":       r.ClosedAt,
		"sessions":        len(r.SessionIDs),
	}
}

// CreateRoom opens a room that closes after timeout_minutes. Staff only.
func (h *Handler) CreateRoom(c *gin.Context) {
	var req CreateRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	room, err := h.Rooms.CreateRoom(c.Request.Context(), time.Duration(req.TimeoutMinutes)*time.Minute)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, roomView(room))
}

// CloseRoom closes a room before its deadline. Staff only.
func (h *Handler) CloseRoom(c *gin.Context) {
	room, err := h.Rooms.CloseRoom(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomView(room))
}

func (h *Handler) JoinRoom(c *gin.Context) {
	var req JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	room, err := h.Rooms.JoinRoom(c.Request.Context(), req.Code)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, roomView(room))
}

// StartRoomGame starts a session for the caller inside the room with the given code.
func (h *Handler) StartRoomGame(c *gin.Context) {
	player, ok := playerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return
	}

	var req StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	sess, err := h.Rooms.StartSession(c.Request.Context(), c.Param("code"), player, req.BetAmount, req.NumMines)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess.ClientState())
}
