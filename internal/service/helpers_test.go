package service_test

import (
	"bytes"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"
	"sync"
	"testing"
	"time"

	"mines_arena/internal/domain"
	"mines_arena/internal/game"
	"mines_arena/internal/lock"
	"mines_arena/internal/repository"
	"mines_arena/internal/service"

	"github.com/jonboulle/clockwork"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

// fakeScheduler records timers so tests decide when they fire.
type fakeScheduler struct {
	mu      sync.Mutex
	actions map[string]func()
	fireAt  map[string]time.Time
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		actions: make(map[string]func()),
		fireAt:  make(map[string]time.Time),
	}
}

func (f *fakeScheduler) Schedule(roomID string, fireAt time.Time, action func()) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.actions[roomID] = action
	f.fireAt[roomID] = fireAt
	return nil
}

func (f *fakeScheduler) Cancel(roomID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.actions[roomID]
	delete(f.actions, roomID)
	delete(f.fireAt, roomID)
	return ok
}

func (f *fakeScheduler) pending(roomID string) (time.Time, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.fireAt[roomID]
	return at, ok
}

// action returns the pending closure without firing it.
func (f *fakeScheduler) action(roomID string) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.actions[roomID]
}

// fire runs and forgets the pending closure, like a timer going off.
func (f *fakeScheduler) fire(roomID string) bool {
	f.mu.Lock()
	action, ok := f.actions[roomID]
	delete(f.actions, roomID)
	delete(f.fireAt, roomID)
	f.mu.Unlock()
	if ok {
		action()
	}
	return ok
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.RoomEvent
}

func (r *recordingPublisher) Publish(ev domain.RoomEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingPublisher) ofType(t domain.EventType) []domain.RoomEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var res []domain.RoomEvent
	for _, ev := range r.events {
		if ev.Type == t {
			res = append(res, ev)
		}
	}
	return res
}

// scriptedSource replays values, then keeps returning the last one.
type scriptedSource struct {
	mu   sync.Mutex
	vals []int
}

func (s *scriptedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := s.vals[0]
	if len(s.vals) > 1 {
		s.vals = s.vals[1:]
	}
	return v % n
}

type env struct {
	store  *repository.MemoryStore
	sched  *fakeScheduler
	clock  *clockwork.FakeClock
	events *recordingPublisher
	logs   *bytes.Buffer
	rooms  *service.RoomService
	games  *service.GameService
}

func newEnv(t *testing.T, mutate ...func(*service.Deps)) *env {
	t.Helper()

	e := &env{
		store:  repository.NewMemoryStore(),
		sched:  newFakeScheduler(),
		clock:  clockwork.NewFakeClockAt(t0),
		events: &recordingPublisher{},
		logs:   &bytes.Buffer{},
	}

	ids := 0
	var idMu sync.Mutex
	deps := service.Deps{
		Store:     e.store,
		Locks:     lock.NewKeyedMutex(),
		Scheduler: e.sched,
		Clock:     e.clock,
		Random:    game.NewLockedSource(rand.New(rand.NewPCG(7, 11))),
		Events:    e.events,
		Logger:    slog.New(slog.NewTextHandler(&syncWriter{buf: e.logs}, nil)),
		NewID: func() string {
			idMu.Lock()
			defer idMu.Unlock()
			ids++
			return fmt.Sprintf("id-%03d", ids)
		},
	}
	for _, m := range mutate {
		m(&deps)
	}

	e.rooms = service.NewRoomService(deps)
	e.games = service.NewGameService(deps)
	return e
}

type syncWriter struct {
	mu  sync.Mutex
	buf *bytes.Buffer
}

func (w *syncWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.Write(p)
}

func safeCells(s *game.Session) []int {
	var cells []int
	for c := 0; c < s.GridSize; c++ {
		if !slices.Contains(s.Mines, c) {
			cells = append(cells, c)
		}
	}
	return cells
}
