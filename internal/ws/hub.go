package ws

import (
	"log/slog"
	"sync"

	"mines_arena/internal/domain"
	"mines_arena/internal/logger"
)

// Hub fans room events out to the websocket clients watching each room, keyed by room id.
// Join codes are reused once a room closes, so they never key a subscription.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   *slog.Logger
}

func NewHub() *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		log:   logger.Component("ws"),
	}
}

func (h *Hub) Subscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs, ok := h.rooms[c.RoomID]
	if !ok {
		subs = make(map[*Client]struct{})
		h.rooms[c.RoomID] = subs
	}
	subs[c] = struct{}{}
	h.log.Debug("subscribed", "room_id", c.RoomID, "room_code", c.RoomCode, "player_id", c.PlayerID, "watchers", len(subs))
}

// Unsubscribe removes c and closes its send queue. Safe to call more than once.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.drop(c)
}

func (h *Hub) drop(c *Client) {
	subs, ok := h.rooms[c.RoomID]
	if !ok {
		return
	}
	if _, ok := subs[c]; !ok {
		return
	}
	delete(subs, c)
	close(c.Send)
	if len(subs) == 0 {
		delete(h.rooms, c.RoomID)
	}
}

// Publish implements service.EventPublisher. It never blocks: a client whose queue is
// full is disconnected. A room_closed event is the last one a room's watchers get.
func (h *Hub) Publish(ev domain.RoomEvent) {
	msg := encode(Message{Type: MsgEvent, Event: &ev})

	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.rooms[ev.RoomID] {
		select {
		case c.Send <- msg:
		default:
			h.log.Warn("dropping slow client", "room_id", ev.RoomID, "player_id", c.PlayerID)
			h.drop(c)
		}
	}

	if ev.Type == domain.EventRoomClosed {
		for c := range h.rooms[ev.RoomID] {
			h.drop(c)
		}
	}
}

// Watchers returns the number of clients subscribed to a room.
func (h *Hub) Watchers(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
