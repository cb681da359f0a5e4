package domain

import "time"

// EventType names a room event pushed to subscribers.
type EventType string

const (
	EventSessionStarted  EventType = "session_started"
	EventSessionFinished EventType = "session_finished"
	EventRoomClosed      EventType = "room_closed"
)

// RoomEvent is a notification about something that happened inside a room.
type RoomEvent struct {
	Type      EventType      `json:"type"`
	RoomCode  string         `json:"room_code"`
	RoomID    string         `json:"room_id"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
