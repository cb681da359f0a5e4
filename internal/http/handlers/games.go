package handlers

import (
	"net/http"

	"mines_arena/internal/game"

	"github.com/gin-gonic/gin"
)

type MoveRequest struct {
	Cell *int `json:"cell" binding:"required"`
}

// StartGame starts a standalone session for the caller.
func (h *Handler) StartGame(c *gin.Context) {
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

	sess, err := h.Games.Start(c.Request.Context(), player, req.BetAmount, req.NumMines)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sess.ClientState())
}

// ownsSession lets the owner (and staff) act on a session. It writes the response when denying.
func (h *Handler) ownsSession(c *gin.Context, id string) bool {
	player, ok := playerID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
		return false
	}

	owner, err := h.Games.PlayerOf(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return false
	}
	if owner != player && !isStaff(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not your game"})
		return false
	}
	return true
}

func (h *Handler) Move(c *gin.Context) {
	id := c.Param("id")

	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if !h.ownsSession(c, id) {
		return
	}

	sess, hitMine, err := h.Games.Move(c.Request.Context(), id, *req.Cell)
	if err != nil {
		h.respondError(c, err)
		return
	}

	state := sess.ClientState()
	state["hit_mine"] = hitMine
	c.JSON(http.StatusOK, state)
}

func (h *Handler) Cashout(c *gin.Context) {
	id := c.Param("id")
	if !h.ownsSession(c, id) {
		return
	}

	res, err := h.Games.Cashout(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetGame(c *gin.Context) {
	id := c.Param("id")
	if !h.ownsSession(c, id) {
		return
	}

	sess, err := h.Games.Get(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.ClientState())
}

// GamePlayer returns who is playing a session.
func (h *Handler) GamePlayer(c *gin.Context) {
	id := c.Param("id")

	player, err := h.Games.PlayerOf(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"game_id": id, "player_id": player})
}

// MinesInfo returns multiplier tables for every mine count and the bet limits.
func (h *Handler) MinesInfo(c *gin.Context) {
	tables := make(map[int][]float64)
	for mines := game.MinMines; mines <= game.MaxMines; mines++ {
		tables[mines] = game.MultiplierTable(mines)
	}

	limits := h.Games.GetLimits()
	c.JSON(http.StatusOK, gin.H{
		"board_size":        game.GridSize,
		"min_mines":         game.MinMines,
		"max_mines":         game.MaxMines,
		"min_bet":           limits.MinBet,
		"max_bet":           limits.MaxBet,
		"multiplier_tables": tables,
	})
}
