package repository_test

import (
	"context"
	"testing"
	"time"

	"mines_arena/internal/domain"
	"mines_arena/internal/game"
	"mines_arena/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newRoom(id, code string, createdAt time.Time) *domain.Room {
	return &domain.Room{
		ID:         id,
		Code:       code,
		CreatedAt:  createdAt,
		Timeout:    5 * time.Minute,
		SessionIDs: []string{},
	}
}

func newSession(id, roomID, player string, bet string) *game.Session {
	return &game.Session{
		ID:         id,
		RoomID:     roomID,
		PlayerID:   player,
		BetAmount:  decimal.RequireFromString(bet),
		GridSize:   game.GridSize,
		Mines:      []int{3, 7, 11},
		Revealed:   []int{},
		Multiplier: game.BaselineMultiplier,
		State:      game.StateInProgress,
		CreatedAt:  base,
	}
}

func closeRoom(r *domain.Room, at time.Time) {
	r.Closed = true
	r.ClosedAt = &at
}

// runStoreContract checks behaviour every Store implementation must share.
// newStore must return an empty store for each call.
func runStoreContract(t *testing.T, newStore func(t *testing.T) repository.Store) {
	ctx := context.Background()

	t.Run("RoomRoundTrip", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.CreateRoom(ctx, newRoom("r1", "123456", base)))

		got, err := st.GetRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, "123456", got.Code)
		assert.Equal(t, 5*time.Minute, got.Timeout)
		assert.WithinDuration(t, base, got.CreatedAt, time.Millisecond)
		assert.False(t, got.Closed)
		assert.Nil(t, got.ClosedAt)
		assert.Empty(t, got.SessionIDs)

		_, err = st.GetRoom(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("OpenCodeIsUnique", func(t *testing.T) {
		st := newStore(t)
		first := newRoom("r1", "111111", base)
		require.NoError(t, st.CreateRoom(ctx, first))

		err := st.CreateRoom(ctx, newRoom("r2", "111111", base.Add(time.Second)))
		assert.ErrorIs(t, err, repository.ErrDuplicateCode)

		closeRoom(first, base.Add(time.Minute))
		require.NoError(t, st.UpdateRoom(ctx, first))
		require.NoError(t, st.CreateRoom(ctx, newRoom("r3", "111111", base.Add(2*time.Minute))))
	})

	t.Run("FindRoomByCodePrefersOpenThenNewest", func(t *testing.T) {
		st := newStore(t)

		older := newRoom("old", "222222", base)
		require.NoError(t, st.CreateRoom(ctx, older))
		closeRoom(older, base.Add(time.Minute))
		require.NoError(t, st.UpdateRoom(ctx, older))

		open := newRoom("open", "222222", base.Add(2*time.Minute))
		require.NoError(t, st.CreateRoom(ctx, open))

		got, err := st.FindRoomByCode(ctx, "222222")
		require.NoError(t, err)
		assert.Equal(t, "open", got.ID)

		closeRoom(open, base.Add(3*time.Minute))
		require.NoError(t, st.UpdateRoom(ctx, open))

		got, err = st.FindRoomByCode(ctx, "222222")
		require.NoError(t, err)
		assert.Equal(t, "open", got.ID)
		assert.True(t, got.Closed)

		_, err = st.FindRoomByCode(ctx, "999999")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SessionsAreLinkedInOrder", func(t *testing.T) {
		st := newStore(t)
		require.NoError(t, st.CreateRoom(ctx, newRoom("r1", "333333", base)))

		empty, err := st.ListSessionsByRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Empty(t, empty)

		for _, id := range []string{"s2", "s1", "s3"} {
			require.NoError(t, st.CreateSession(ctx, newSession(id, "r1", "p-"+id, "10")))
		}

		room, err := st.GetRoom(ctx, "r1")
		require.NoError(t, err)
		assert.Equal(t, []string{"s2", "s1", "s3"}, room.SessionIDs)

		list, err := st.ListSessionsByRoom(ctx, "r1")
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "s2", list[0].ID)
		assert.Equal(t, "s1", list[1].ID)
		assert.Equal(t, "s3", list[2].ID)

		_, err = st.ListSessionsByRoom(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("CreateSessionUnknownRoom", func(t *testing.T) {
		st := newStore(t)
		err := st.CreateSession(ctx, newSession("s1", "ghost", "p1", "10"))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("SessionRoundTripAndUpdate", func(t *testing.T) {
		st := newStore(t)
		s := newSession("s1", "", "p1", "12.5")
		require.NoError(t, st.CreateSession(ctx, s))

		got, err := st.GetSession(ctx, "s1")
		require.NoError(t, err)
		assert.Empty(t, got.RoomID)
		assert.Equal(t, "p1", got.PlayerID)
		assert.True(t, decimal.RequireFromString("12.5").Equal(got.BetAmount))
		assert.Equal(t, []int{3, 7, 11}, got.Mines)
		assert.Empty(t, got.Revealed)
		assert.Equal(t, game.StateInProgress, got.State)

		finished := base.Add(time.Minute)
		s.Revealed = []int{0, 1}
		s.Multiplier = 1.28
		s.State = game.StateCashedOut
		s.FinishedAt = &finished
		require.NoError(t, st.UpdateSession(ctx, s))

		got, err = st.GetSession(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1}, got.Revealed)
		assert.InDelta(t, 1.28, got.Multiplier, 1e-9)
		assert.Equal(t, game.StateCashedOut, got.State)
		require.NotNil(t, got.FinishedAt)
		assert.WithinDuration(t, finished, *got.FinishedAt, time.Millisecond)

		_, err = st.GetSession(ctx, "missing")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		assert.ErrorIs(t, st.UpdateSession(ctx, newSession("missing", "", "p", "1")), domain.ErrNotFound)
	})

	t.Run("UpdateRoomKeepsSessions", func(t *testing.T) {
		st := newStore(t)
		room := newRoom("r1", "444444", base)
		require.NoError(t, st.CreateRoom(ctx, room))
		require.NoError(t, st.CreateSession(ctx, newSession("s1", "r1", "p1", "10")))

		// stale copy without the session id
		closeRoom(room, base.Add(time.Minute))
		require.NoError(t, st.UpdateRoom(ctx, room))

		got, err := st.GetRoom(ctx, "r1")
		require.NoError(t, err)
		assert.True(t, got.Closed)
		assert.Equal(t, []string{"s1"}, got.SessionIDs)

		assert.ErrorIs(t, st.UpdateRoom(ctx, newRoom("missing", "000000", base)), domain.ErrNotFound)
	})

	t.Run("ListOpenRooms", func(t *testing.T) {
		st := newStore(t)
		closed := newRoom("r1", "555555", base)
		require.NoError(t, st.CreateRoom(ctx, closed))
		closeRoom(closed, base.Add(time.Minute))
		require.NoError(t, st.UpdateRoom(ctx, closed))
		require.NoError(t, st.CreateRoom(ctx, newRoom("r2", "555556", base)))

		open, err := st.ListOpenRooms(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, "r2", open[0].ID)
	})

	t.Run("DeleteClosedRoomsBefore", func(t *testing.T) {
		st := newStore(t)

		stale := newRoom("stale", "666666", base)
		require.NoError(t, st.CreateRoom(ctx, stale))
		require.NoError(t, st.CreateSession(ctx, newSession("s-stale", "stale", "p1", "10")))
		closeRoom(stale, base.Add(time.Minute))
		require.NoError(t, st.UpdateRoom(ctx, stale))

		recent := newRoom("recent", "666667", base)
		require.NoError(t, st.CreateRoom(ctx, recent))
		closeRoom(recent, base.Add(time.Hour))
		require.NoError(t, st.UpdateRoom(ctx, recent))

		require.NoError(t, st.CreateRoom(ctx, newRoom("open", "666668", base)))

		n, err := st.DeleteClosedRoomsBefore(ctx, base.Add(30*time.Minute))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		_, err = st.GetRoom(ctx, "stale")
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = st.GetSession(ctx, "s-stale")
		assert.ErrorIs(t, err, domain.ErrNotFound)

		_, err = st.GetRoom(ctx, "recent")
		assert.NoError(t, err)
		_, err = st.GetRoom(ctx, "open")
		assert.NoError(t, err)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(ctx))
	})
}
