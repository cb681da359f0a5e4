package service

import "mines_arena/internal/domain"

// EventPublisher fans room events out to whoever listens (websocket hub).
// Publish must not block the caller.
type EventPublisher interface {
	Publish(ev domain.RoomEvent)
}

type nopPublisher struct{}

func (nopPublisher) Publish(domain.RoomEvent) {}
