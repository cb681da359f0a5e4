package service

import (
	"log/slog"

	"mines_arena/internal/game"
	"mines_arena/internal/lock"
	"mines_arena/internal/logger"
	"mines_arena/internal/repository"
	"mines_arena/internal/scheduler"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// Deps are the collaborators shared by RoomService and GameService.
// Store, Locks and (for rooms) Scheduler are required; the rest have defaults.
// Random is called from request goroutines and must be safe for concurrent use.
type Deps struct {
	Store     repository.Store
	Locks     lock.Locker
	Scheduler scheduler.RoomScheduler
	Clock     clockwork.Clock
	Random    game.RandomSource
	Events    EventPublisher
	Limits    GameLimits
	Logger    *slog.Logger
	NewID     func() string
}

func (d Deps) withDefaults() Deps {
	if d.Clock == nil {
		d.Clock = clockwork.NewRealClock()
	}
	if d.Random == nil {
		d.Random = game.CryptoSource{}
	}
	if d.Events == nil {
		d.Events = nopPublisher{}
	}
	if d.Logger == nil {
		d.Logger = logger.Get()
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	return d
}
