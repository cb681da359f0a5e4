package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"mines_arena/internal/logger"
	"mines_arena/internal/service"

	"github.com/gorilla/websocket"
	"github.com/joho/godotenv"
)

// Smoke test against a running server: an admin opens a room, a player watches it over
// websocket, plays one game and cashes out, then the room is closed early.
func main() {
	_ = godotenv.Load()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		logger.Fatal("JWT_SECRET not set")
	}
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	service.InitJWT(jwtSecret)
	adminToken, err := service.GenerateJWT("smoke-admin", service.RoleAdmin)
	if err != nil {
		logger.Fatal("gen admin token", "error", err)
	}
	playerToken, err := service.GenerateJWT("smoke-player", service.RolePlayer)
	if err != nil {
		logger.Fatal("gen player token", "error", err)
	}

	// use 127.0.0.1 to prefer IPv4 (avoid resolving to [::1])
	base := fmt.Sprintf("http://127.0.0.1:%s/api/v1", port)

	var room struct {
		ID   string `json:"id"`
		Code string `json:"code"`
	}
	mustCall(http.MethodPost, base+"/admin/rooms", adminToken, map[string]any{"timeout_minutes": 5}, http.StatusCreated, &room)
	logger.Info("room created", "id", room.ID, "code", room.Code)

	wsURL := fmt.Sprintf("ws://127.0.0.1:%s/ws/rooms/%s?token=%s", port, room.Code, playerToken)
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		logger.Fatal("dial room stream", "error", err)
	}
	defer conn.Close()

	events := make(chan string, 16)
	go func() {
		defer close(events)
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			events <- string(msg)
		}
	}()

	var game struct {
		ID string `json:"id"`
	}
	mustCall(http.MethodPost, base+"/rooms/"+room.Code+"/games/start", playerToken,
		map[string]any{"bet_amount": "10", "num_mines": 1}, http.StatusCreated, &game)
	logger.Info("game started", "id", game.ID)

	// With a single mine the first cell is safe 24 times out of 25.
	var moved map[string]any
	mustCall(http.MethodPost, base+"/games/"+game.ID+"/move", playerToken, map[string]any{"cell": 12}, http.StatusOK, &moved)
	logger.Info("revealed cell 12", "hit_mine", moved["hit_mine"], "multiplier", moved["multiplier"])

	var cash map[string]any
	mustCall(http.MethodPost, base+"/games/"+game.ID+"/cashout", playerToken, nil, http.StatusOK, &cash)
	logger.Info("cashed out", "amount", cash["cashout_amount"], "state", cash["game_state"])

	var board map[string]any
	mustCall(http.MethodGet, base+"/rooms/"+room.Code+"/leaderboard", "", nil, http.StatusOK, &board)
	logger.Info("leaderboard", "entries", board["leaderboard"])

	mustCall(http.MethodPost, base+"/admin/rooms/"+room.ID+"/close", adminToken, nil, http.StatusOK, nil)

	timeout := time.After(3 * time.Second)
	for {
		select {
		case msg, ok := <-events:
			if !ok {
				logger.Info("smoke test finished")
				return
			}
			logger.Info("room event", "message", msg)
		case <-timeout:
			logger.Fatal("room stream did not close after room_closed")
		}
	}
}

func mustCall(method, url, token string, body any, want int, out any) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			logger.Fatal("encode body", "error", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, rd)
	if err != nil {
		logger.Fatal("build request", "url", url, "error", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		logger.Fatal("request failed", "url", url, "error", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != want {
		logger.Fatal("unexpected status", "url", url, "status", resp.StatusCode, "body", string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			logger.Fatal("decode response", "url", url, "error", err)
		}
	}
}
