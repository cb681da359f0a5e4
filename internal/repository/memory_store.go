package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mines_arena/internal/domain"
	"mines_arena/internal/game"
)

// MemoryStore keeps everything in process. It is the default store and the one tests use.
type MemoryStore struct {
	mu       sync.RWMutex
	rooms    map[string]*domain.Room
	sessions map[string]*game.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:    make(map[string]*domain.Room),
		sessions: make(map[string]*game.Session),
	}
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) CreateRoom(_ context.Context, room *domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rooms[room.ID]; ok {
		return fmt.Errorf("room %s already exists", room.ID)
	}
	if !room.Closed {
		for _, r := range m.rooms {
			if !r.Closed && r.Code == room.Code {
				return ErrDuplicateCode
			}
		}
	}

	m.rooms[room.ID] = room.Clone()
	return nil
}

func (m *MemoryStore) UpdateRoom(_ context.Context, room *domain.Room) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.rooms[room.ID]
	if !ok {
		return fmt.Errorf("room %s: %w", room.ID, domain.ErrNotFound)
	}

	next := room.Clone()
	next.SessionIDs = cur.SessionIDs // owned by CreateSession
	m.rooms[room.ID] = next
	return nil
}

func (m *MemoryStore) GetRoom(_ context.Context, id string) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[id]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", id, domain.ErrNotFound)
	}
	return r.Clone(), nil
}

func (m *MemoryStore) FindRoomByCode(_ context.Context, code string) (*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var best *domain.Room
	for _, r := range m.rooms {
		if r.Code != code {
			continue
		}
		if best == nil || preferRoom(r, best) {
			best = r
		}
	}
	if best == nil {
		return nil, fmt.Errorf("room with code %s: %w", code, domain.ErrNotFound)
	}
	return best.Clone(), nil
}

// preferRoom orders open rooms first, then newer ones.
func preferRoom(a, b *domain.Room) bool {
	if a.Closed != b.Closed {
		return !a.Closed
	}
	return a.CreatedAt.After(b.CreatedAt)
}

func (m *MemoryStore) ListOpenRooms(context.Context) ([]*domain.Room, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var res []*domain.Room
	for _, r := range m.rooms {
		if !r.Closed {
			res = append(res, r.Clone())
		}
	}
	return res, nil
}

func (m *MemoryStore) DeleteClosedRoomsBefore(_ context.Context, before time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	for id, r := range m.rooms {
		if !r.Closed || r.ClosedAt == nil || !r.ClosedAt.Before(before) {
			continue
		}
		for _, sid := range r.SessionIDs {
			delete(m.sessions, sid)
		}
		delete(m.rooms, id)
		n++
	}
	return n, nil
}

func (m *MemoryStore) CreateSession(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; ok {
		return fmt.Errorf("session %s already exists", s.ID)
	}

	if s.RoomID != "" {
		r, ok := m.rooms[s.RoomID]
		if !ok {
			return fmt.Errorf("room %s: %w", s.RoomID, domain.ErrNotFound)
		}
		r.SessionIDs = append(r.SessionIDs, s.ID)
	}

	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) UpdateSession(_ context.Context, s *game.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[s.ID]; !ok {
		return fmt.Errorf("session %s: %w", s.ID, domain.ErrNotFound)
	}
	m.sessions[s.ID] = s.Clone()
	return nil
}

func (m *MemoryStore) GetSession(_ context.Context, id string) (*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %s: %w", id, domain.ErrNotFound)
	}
	return s.Clone(), nil
}

func (m *MemoryStore) ListSessionsByRoom(_ context.Context, roomID string) ([]*game.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("room %s: %w", roomID, domain.ErrNotFound)
	}

	res := make([]*game.Session, 0, len(r.SessionIDs))
	for _, sid := range r.SessionIDs {
		if s, ok := m.sessions[sid]; ok {
			res = append(res, s.Clone())
		}
	}
	return res, nil
}
