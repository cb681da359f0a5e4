package domain

import (
	"errors"
	"fmt"
)

// Error kinds surfaced by the engine. Callers match them with errors.Is.
var (
	ErrInvalidParameter   = errors.New("invalid parameter")
	ErrNotFound           = errors.New("not found")
	ErrRoomClosed         = errors.New("room is closed")
	ErrIllegalState       = errors.New("illegal state")
	ErrInvalidMove        = errors.New("invalid move")
	ErrInvariantViolation = errors.New("invariant violation")

	// ErrRoomEmpty reports a known room with no sessions. It matches ErrNotFound too.
	ErrRoomEmpty = fmt.Errorf("%w: room has no sessions", ErrNotFound)
)
