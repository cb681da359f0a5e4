package ws

import (
	"encoding/json"

	"mines_arena/internal/domain"
)

// Message is the envelope of every frame.
type Message struct {
	Type  string            `json:"type"`
	Event *domain.RoomEvent `json:"event,omitempty"`
	Error string            `json:"error,omitempty"`
}

// client → server
type inbound struct {
	Type string `json:"type"`
}

func encode(m Message) []byte {
	b, _ := json.Marshal(m)
	return b
}
