package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mines_arena/internal/domain"
	"mines_arena/internal/game"
	"mines_arena/internal/lock"
	"mines_arena/internal/repository"
	"mines_arena/internal/scheduler"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

const (
	maxCodeAttempts = 32
	closeTimeout    = 10 * time.Second
)

// Close reasons, used as metric labels and in the room_closed event.
const (
	CloseReasonExpired        = "expired"
	CloseReasonManual         = "manual"
	CloseReasonScheduleFailed = "schedule_failed"
)

var ErrNoFreeCode = errors.New("no free room code")

// RoomService runs the room lifecycle: creation with a closure timer, joins,
// starting sessions inside a room, closing and the room leaderboard.
type RoomService struct {
	store  repository.Store
	locks  lock.Locker
	sched  scheduler.RoomScheduler
	clock  clockwork.Clock
	rng    game.RandomSource
	events EventPublisher
	limits GameLimits
	log    *slog.Logger
	newID  func() string
}

func NewRoomService(d Deps) *RoomService {
	d = d.withDefaults()
	return &RoomService{
		store:  d.Store,
		locks:  d.Locks,
		sched:  d.Scheduler,
		clock:  d.Clock,
		rng:    d.Random,
		events: d.Events,
		limits: d.Limits,
		log:    d.Logger.With("component", "rooms"),
		newID:  d.NewID,
	}
}

// CreateRoom opens a room that closes itself after timeout.
func (s *RoomService) CreateRoom(ctx context.Context, timeout time.Duration) (*domain.Room, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: timeout must be positive", domain.ErrInvalidParameter)
	}

	room := &domain.Room{
		ID:         s.newID(),
		CreatedAt:  s.clock.Now(),
		Timeout:    timeout,
		SessionIDs: []string{},
	}

	created := false
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		room.Code = s.newCode()
		err := s.store.CreateRoom(ctx, room)
		if errors.Is(err, repository.ErrDuplicateCode) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create room: %w", err)
		}
		created = true
		break
	}
	if !created {
		return nil, fmt.Errorf("create room: %w after %d attempts", ErrNoFreeCode, maxCodeAttempts)
	}

	if err := s.schedule(room); err != nil {
		// a room nobody will close must not stay joinable
		if _, cerr := s.closeRoom(ctx, room.ID, CloseReasonScheduleFailed); cerr != nil {
			s.log.Error("close unscheduled room", "room_id", room.ID, "error", cerr)
		}
		return nil, fmt.Errorf("schedule room closure: %w", err)
	}

	RoomsCreated.Inc()
	s.log.Info("room created", "room_id", room.ID, "code", room.Code, "expires_at", room.ExpiresAt())
	return room, nil
}

func (s *RoomService) newCode() string {
	return fmt.Sprintf("%0*d", domain.RoomCodeLength, s.rng.IntN(1_000_000))
}

func (s *RoomService) schedule(room *domain.Room) error {
	id := room.ID
	return s.sched.Schedule(id, room.ExpiresAt(), func() { s.expire(id) })
}

// expire runs on the scheduler goroutine.
func (s *RoomService) expire(roomID string) {
	ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
	defer cancel()

	if _, err := s.closeRoom(ctx, roomID, CloseReasonExpired); err != nil {
		s.log.Error("expire room", "room_id", roomID, "error", err)
	}
}

// JoinRoom resolves a join code to an open room. It changes nothing.
func (s *RoomService) JoinRoom(ctx context.Context, code string) (*domain.Room, error) {
	room, err := s.store.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if room.Closed {
		return nil, fmt.Errorf("%w: room %s", domain.ErrRoomClosed, code)
	}
	return room, nil
}

// GetRoom returns a room by id.
func (s *RoomService) GetRoom(ctx context.Context, id string) (*domain.Room, error) {
	return s.store.GetRoom(ctx, id)
}

// StartSession begins a game for playerID in the open room with the given code.
func (s *RoomService) StartSession(ctx context.Context, code, playerID string, bet decimal.Decimal, mines int) (*game.Session, error) {
	if err := s.limits.ValidateBet(bet); err != nil {
		return nil, err
	}

	found, err := s.store.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	unlock, err := s.locks.Lock(ctx, lock.RoomKey(found.ID))
	if err != nil {
		return nil, fmt.Errorf("lock room: %w", err)
	}
	defer unlock()

	// closure may have won the race since the lookup
	room, err := s.store.GetRoom(ctx, found.ID)
	if err != nil {
		return nil, err
	}
	if room.Closed {
		return nil, fmt.Errorf("%w: room %s", domain.ErrRoomClosed, code)
	}

	sess, err := game.NewSession(s.newID(), playerID, bet, mines, s.rng, s.clock.Now())
	if err != nil {
		return nil, err
	}
	sess.RoomID = room.ID

	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	SessionsStarted.WithLabelValues("room").Inc()
	s.log.Debug("session started", "room_id", room.ID, "session_id", sess.ID, "player_id", playerID, "mines", mines)
	s.events.Publish(domain.RoomEvent{
		Type:     domain.EventSessionStarted,
		RoomCode: room.Code,
		RoomID:   room.ID,
		Payload: map[string]any{
			"session_id":  sess.ID,
			"player_id":   playerID,
			"bet_amount":  bet.String(),
			"mines_count": mines,
		},
		Timestamp: sess.CreatedAt,
	})
	return sess, nil
}

// CloseRoom closes a room ahead of its deadline. Closing a closed room is a no-op.
func (s *RoomService) CloseRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.closeRoom(ctx, roomID, CloseReasonManual)
}

func (s *RoomService) closeRoom(ctx context.Context, roomID, reason string) (*domain.Room, error) {
	unlock, err := s.locks.Lock(ctx, lock.RoomKey(roomID))
	if err != nil {
		return nil, fmt.Errorf("lock room: %w", err)
	}

	room, err := s.store.GetRoom(ctx, roomID)
	if err != nil {
		unlock()
		return nil, err
	}
	if room.Closed {
		unlock()
		return room, nil
	}

	now := s.clock.Now()
	room.Closed = true
	room.ClosedAt = &now
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		unlock()
		return nil, fmt.Errorf("close room: %w", err)
	}
	unlock()

	s.sched.Cancel(roomID)

	RoomsClosed.WithLabelValues(reason).Inc()
	s.log.Info("room closed", "room_id", roomID, "code", room.Code, "reason", reason, "sessions", len(room.SessionIDs))
	s.events.Publish(domain.RoomEvent{
		Type:     domain.EventRoomClosed,
		RoomCode: room.Code,
		RoomID:   room.ID,
		Payload: map[string]any{
			"reason":   reason,
			"sessions": len(room.SessionIDs),
		},
		Timestamp: now,
	})
	return room, nil
}

// Leaderboard ranks the players of the room with the given code by total payout.
func (s *RoomService) Leaderboard(ctx context.Context, code string) ([]domain.LeaderboardEntry, error) {
	room, err := s.store.FindRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	sessions, err := s.store.ListSessionsByRoom(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	if len(sessions) == 0 {
		return nil, fmt.Errorf("room %s: %w", code, domain.ErrRoomEmpty)
	}
	return BuildLeaderboard(sessions), nil
}

// RestoreSchedules re-arms closure timers for rooms left open by a previous process.
// Rooms whose deadline already passed close right away.
func (s *RoomService) RestoreSchedules(ctx context.Context) (int, error) {
	rooms, err := s.store.ListOpenRooms(ctx)
	if err != nil {
		return 0, fmt.Errorf("list open rooms: %w", err)
	}

	n := 0
	for _, room := range rooms {
		if err := s.schedule(room); err != nil {
			s.log.Error("restore room schedule", "room_id", room.ID, "error", err)
			continue
		}
		n++
	}
	return n, nil
}

// PurgeClosed deletes rooms closed longer than retention ago, with their sessions.
func (s *RoomService) PurgeClosed(ctx context.Context, retention time.Duration) (int, error) {
	n, err := s.store.DeleteClosedRoomsBefore(ctx, s.clock.Now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("purge closed rooms: %w", err)
	}
	if n > 0 {
		s.log.Info("closed rooms purged", "count", n)
	}
	return n, nil
}
