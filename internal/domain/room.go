package domain

import "time"

// RoomCodeLength is the width of a numeric join code.
const RoomCodeLength = 6

// Room is a time-boxed container of game sessions under one join code.
type Room struct {
	ID         string        `json:"id"`
	Code       string        `json:"code"`
	CreatedAt  time.Time     `json:"created_at"`
	Timeout    time.Duration `json:"timeout"`
	Closed     bool          `json:"closed"`
	ClosedAt   *time.Time    `json:"closed_at,omitempty"`
	SessionIDs []string      `json:"session_ids"`
}

// ExpiresAt is the moment the scheduler closes the room.
func (r *Room) ExpiresAt() time.Time {
	return r.CreatedAt.Add(r.Timeout)
}

// Clone returns a deep copy safe to hand out of a store.
func (r *Room) Clone() *Room {
	c := *r
	if r.ClosedAt != nil {
		t := *r.ClosedAt
		c.ClosedAt = &t
	}
	c.SessionIDs = append([]string{}, r.SessionIDs...)
	return &c
}
