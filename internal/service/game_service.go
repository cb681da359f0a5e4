package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"mines_arena/internal/domain"
	"mines_arena/internal/game"
	"mines_arena/internal/lock"
	"mines_arena/internal/repository"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
)

// GameService applies moves and cashouts to stored sessions. Every mutation of a
// session happens under its session lock, so concurrent requests for the same
// game are applied one after another.
type GameService struct {
	store  repository.Store
	locks  lock.Locker
	clock  clockwork.Clock
	rng    game.RandomSource
	events EventPublisher
	limits GameLimits
	log    *slog.Logger
	newID  func() string
}

func NewGameService(d Deps) *GameService {
	d = d.withDefaults()
	return &GameService{
		store:  d.Store,
		locks:  d.Locks,
		clock:  d.Clock,
		rng:    d.Random,
		events: d.Events,
		limits: d.Limits,
		log:    d.Logger.With("component", "games"),
		newID:  d.NewID,
	}
}

// GetLimits returns current bet limits
func (s *GameService) GetLimits() GameLimits {
	return s.limits
}

// Start begins a session that belongs to no room.
func (s *GameService) Start(ctx context.Context, playerID string, bet decimal.Decimal, mines int) (*game.Session, error) {
	if err := s.limits.ValidateBet(bet); err != nil {
		return nil, err
	}

	sess, err := game.NewSession(s.newID(), playerID, bet, mines, s.rng, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	SessionsStarted.WithLabelValues("standalone").Inc()
	return sess, nil
}

// Get returns a session by id.
func (s *GameService) Get(ctx context.Context, id string) (*game.Session, error) {
	return s.store.GetSession(ctx, id)
}

// PlayerOf returns the id of the player who owns the session.
func (s *GameService) PlayerOf(ctx context.Context, id string) (string, error) {
	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return "", err
	}
	return sess.PlayerID, nil
}

// Move reveals cell in the session and persists the outcome.
func (s *GameService) Move(ctx context.Context, id string, cell int) (*game.Session, bool, error) {
	unlock, err := s.locks.Lock(ctx, lock.SessionKey(id))
	if err != nil {
		return nil, false, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return nil, false, err
	}

	hitMine, err := sess.Move(cell, s.clock.Now())
	if err != nil {
		if errors.Is(err, domain.ErrInvariantViolation) {
			InvariantViolations.Inc()
			s.log.Error("session invariant violated", "session_id", id, "cell", cell, "error", err)
		}
		return nil, false, err
	}

	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return nil, false, fmt.Errorf("save session: %w", err)
	}

	if sess.State.Terminal() {
		s.finished(sess)
	}
	return sess, hitMine, nil
}

// Cashout settles the session. See game.Session.Cashout for the rules.
func (s *GameService) Cashout(ctx context.Context, id string) (game.CashoutResult, error) {
	unlock, err := s.locks.Lock(ctx, lock.SessionKey(id))
	if err != nil {
		return game.CashoutResult{}, fmt.Errorf("lock session: %w", err)
	}
	defer unlock()

	sess, err := s.store.GetSession(ctx, id)
	if err != nil {
		return game.CashoutResult{}, err
	}

	before := sess.State
	res, err := sess.Cashout(s.clock.Now())
	if err != nil {
		return res, err
	}
	if sess.State == before {
		return res, nil
	}

	if err := s.store.UpdateSession(ctx, sess); err != nil {
		return game.CashoutResult{}, fmt.Errorf("save session: %w", err)
	}
	s.finished(sess)
	return res, nil
}

func (s *GameService) finished(sess *game.Session) {
	payout := sess.Payout()

	SessionsFinished.WithLabelValues(string(sess.State)).Inc()
	PayoutTotal.Add(payout.InexactFloat64())
	s.log.Debug("session finished", "session_id", sess.ID, "state", sess.State, "payout", payout.String())

	if sess.RoomID == "" {
		return
	}

	code := ""
	if room, err := s.store.GetRoom(context.Background(), sess.RoomID); err == nil {
		code = room.Code
	}
	s.events.Publish(domain.RoomEvent{
		Type:     domain.EventSessionFinished,
		RoomCode: code,
		RoomID:   sess.RoomID,
		Payload: map[string]any{
			"session_id": sess.ID,
			"player_id":  sess.PlayerID,
			"state":      sess.State,
			"multiplier": sess.Multiplier,
			"payout":     payout.String(),
		},
		Timestamp: *sess.FinishedAt,
	})
}
