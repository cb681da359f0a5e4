package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"mines_arena/internal/domain"
	httpserver "mines_arena/internal/http"
	"mines_arena/internal/lock"
	"mines_arena/internal/logger"
	"mines_arena/internal/repository"
	"mines_arena/internal/scheduler"
	"mines_arena/internal/service"
	"mines_arena/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func applyMigrations(t *testing.T, db *pgxpool.Pool) {
	t.Helper()
	migDir := filepath.Join("..", "..", "internal", "migrations")
	files, err := os.ReadDir(migDir)
	require.NoError(t, err)
	for _, f := range files {
		b, err := os.ReadFile(filepath.Join(migDir, f.Name()))
		require.NoError(t, err)
		_, err = db.Exec(context.Background(), string(b))
		require.NoError(t, err, "apply migration %s", f.Name())
	}
}

// newStore uses postgres when DATABASE_URL is set and the in-memory store otherwise.
func newStore(t *testing.T) repository.Store {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return repository.NewMemoryStore()
	}

	db, err := pgxpool.New(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(db.Close)

	applyMigrations(t, db)
	_, err = db.Exec(context.Background(), "TRUNCATE game_sessions, rooms")
	require.NoError(t, err)
	return repository.NewPostgresStore(db)
}

type server struct {
	url   string
	store repository.Store
	rooms *service.RoomService
}

func startServer(t *testing.T) *server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	service.InitJWT("e2e-secret")

	sched, err := scheduler.New(clockwork.NewRealClock(), logger.Get())
	require.NoError(t, err)
	sched.Start()
	t.Cleanup(func() { _ = sched.Shutdown() })

	store := newStore(t)
	hub := ws.NewHub()
	deps := service.Deps{
		Store:     store,
		Locks:     lock.NewKeyedMutex(),
		Scheduler: sched,
		Events:    hub,
	}
	rooms := service.NewRoomService(deps)

	r := gin.New()
	httpserver.RegisterRoutes(r, httpserver.Deps{
		Rooms: rooms,
		Games: service.NewGameService(deps),
		Hub:   hub,
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	return &server{url: srv.URL, store: store, rooms: rooms}
}

func (s *server) post(t *testing.T, path, token string, body any, out any) int {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, s.url+path, bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// nextEvent reads frames until a room event arrives.
func nextEvent(t *testing.T, conn *websocket.Conn) domain.RoomEvent {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var m ws.Message
		require.NoError(t, json.Unmarshal(raw, &m))
		if m.Type == ws.MsgEvent {
			require.NotNil(t, m.Event)
			return *m.Event
		}
	}
}

func TestE2E_RoomLifecycle(t *testing.T) {
	s := startServer(t)
	ctx := context.Background()

	token, err := service.GenerateJWT("alice", "")
	require.NoError(t, err)

	room, err := s.rooms.CreateRoom(ctx, 1500*time.Millisecond)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(s.url, "http") + "/ws/rooms/" + room.Code + "?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(raw), ws.MsgReady)

	var game struct {
		ID string `json:"id"`
	}
	status := s.post(t, "/api/v1/rooms/"+room.Code+"/games/start", token,
		map[string]any{"bet_amount": "4", "num_mines": 2}, &game)
	require.Equal(t, http.StatusCreated, status)

	ev := nextEvent(t, conn)
	assert.Equal(t, domain.EventSessionStarted, ev.Type)
	assert.Equal(t, room.ID, ev.RoomID)

	sess, err := s.store.GetSession(ctx, game.ID)
	require.NoError(t, err)
	cell := slices.IndexFunc([]int{0, 1, 2, 3}, func(c int) bool { return !slices.Contains(sess.Mines, c) })
	require.GreaterOrEqual(t, cell, 0)

	status = s.post(t, "/api/v1/games/"+game.ID+"/move", token, map[string]any{"cell": cell}, nil)
	require.Equal(t, http.StatusOK, status)

	var cash map[string]any
	status = s.post(t, "/api/v1/games/"+game.ID+"/cashout", token, nil, &cash)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "CASHED_OUT", cash["game_state"])

	ev = nextEvent(t, conn)
	assert.Equal(t, domain.EventSessionFinished, ev.Type)

	// the room times out on its own
	ev = nextEvent(t, conn)
	assert.Equal(t, domain.EventRoomClosed, ev.Type)

	got, err := s.rooms.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.True(t, got.Closed)
	require.NotNil(t, got.ClosedAt)

	status = s.post(t, "/api/v1/rooms/"+room.Code+"/games/start", token,
		map[string]any{"bet_amount": "4", "num_mines": 2}, nil)
	assert.Equal(t, http.StatusConflict, status)

	board, err := s.rooms.Leaderboard(ctx, room.Code)
	require.NoError(t, err)
	require.Len(t, board, 1)
	assert.Equal(t, "alice", board[0].PlayerID)
	assert.True(t, board[0].TotalPayout.IsPositive())
}
