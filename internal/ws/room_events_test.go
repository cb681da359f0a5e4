package ws

import (
	"context"
	"testing"
	"time"

	"mines_arena/internal/domain"
	"mines_arena/internal/lock"
	"mines_arena/internal/logger"
	"mines_arena/internal/repository"
	"mines_arena/internal/scheduler"
	"mines_arena/internal/service"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedSource always draws 42, so every room gets code 000042.
type fixedSource struct{}

func (fixedSource) IntN(n int) int { return 42 % n }

func TestHub_ReusedCodeKeepsRoomsApart(t *testing.T) {
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Now())

	sched, err := scheduler.New(clock, logger.Get())
	require.NoError(t, err)
	sched.Start()
	t.Cleanup(func() { _ = sched.Shutdown() })

	store := repository.NewMemoryStore()
	hub := NewHub()
	deps := service.Deps{
		Store:     store,
		Locks:     lock.NewKeyedMutex(),
		Scheduler: sched,
		Clock:     clock,
		Random:    fixedSource{},
		Events:    hub,
	}
	rooms := service.NewRoomService(deps)
	games := service.NewGameService(deps)

	first, err := rooms.CreateRoom(ctx, time.Hour)
	require.NoError(t, err)
	sess, err := rooms.StartSession(ctx, first.Code, "alice", decimal.NewFromInt(10), 3)
	require.NoError(t, err)
	_, err = rooms.CloseRoom(ctx, first.ID)
	require.NoError(t, err)

	second, err := rooms.CreateRoom(ctx, time.Hour)
	require.NoError(t, err)
	require.Equal(t, first.Code, second.Code)
	require.NotEqual(t, first.ID, second.ID)

	watcher := fakeClient(hub, second.ID, 8)
	watcher.RoomCode = second.Code
	hub.Subscribe(watcher)

	// play on in the closed room
	stored, err := store.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	_, hit, err := games.Move(ctx, sess.ID, stored.Mines[0])
	require.NoError(t, err)
	require.True(t, hit)

	assert.Empty(t, watcher.Send, "events of the closed room must not reach the new one")

	_, err = rooms.StartSession(ctx, second.Code, "bob", decimal.NewFromInt(10), 3)
	require.NoError(t, err)

	require.Len(t, watcher.Send, 1)
	m := decode(t, <-watcher.Send)
	require.NotNil(t, m.Event)
	assert.Equal(t, domain.EventSessionStarted, m.Event.Type)
	assert.Equal(t, second.ID, m.Event.RoomID)
}
