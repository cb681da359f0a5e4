// Package lock provides mutual exclusion scoped to an entity identifier.
package lock

import "context"

// Locker serializes work per key. Lock blocks until the key is free or ctx is done;
// the returned func releases the key and must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// RoomKey and SessionKey build the keys used by the engine.
func RoomKey(id string) string    { return "room:" + id }
func SessionKey(id string) string { return "session:" + id }
