package repository

import (
	"context"
	"errors"
	"time"

	"mines_arena/internal/domain"
	"mines_arena/internal/game"
)

// ErrDuplicateCode is returned by CreateRoom when another open room holds the code.
var ErrDuplicateCode = errors.New("room code already in use")

// RoomRepository persists rooms. Reads return copies the caller may mutate.
type RoomRepository interface {
	CreateRoom(ctx context.Context, room *domain.Room) error
	UpdateRoom(ctx context.Context, room *domain.Room) error
	GetRoom(ctx context.Context, id string) (*domain.Room, error)
	// FindRoomByCode prefers the open room with the code, then the most recently created closed one.
	FindRoomByCode(ctx context.Context, code string) (*domain.Room, error)
	ListOpenRooms(ctx context.Context) ([]*domain.Room, error)
	// DeleteClosedRoomsBefore removes rooms closed before the cutoff together with their sessions.
	DeleteClosedRoomsBefore(ctx context.Context, before time.Time) (int, error)
}

// SessionRepository persists game sessions.
type SessionRepository interface {
	// CreateSession stores the session and, when RoomID is set, appends it to the room.
	CreateSession(ctx context.Context, s *game.Session) error
	UpdateSession(ctx context.Context, s *game.Session) error
	GetSession(ctx context.Context, id string) (*game.Session, error)
	// ListSessionsByRoom returns the room's sessions in creation order.
	ListSessionsByRoom(ctx context.Context, roomID string) ([]*game.Session, error)
}

// Store is the persistence collaborator of the engine.
type Store interface {
	RoomRepository
	SessionRepository
	Ping(ctx context.Context) error
}
