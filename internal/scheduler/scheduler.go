// Package scheduler fires one-shot room closures and periodic maintenance jobs.
package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// RoomScheduler holds at most one pending closure per room.
type RoomScheduler interface {
	// Schedule registers action to run once at fireAt, replacing any pending timer for the room.
	Schedule(roomID string, fireAt time.Time, action func()) error
	// Cancel drops a pending timer. It reports false when nothing was pending,
	// including when the timer already fired.
	Cancel(roomID string) bool
}

type pendingJob struct {
	seq    uint64
	jobID  uuid.UUID
	fireAt time.Time
}

// CronScheduler implements RoomScheduler on top of gocron one-time jobs.
// It keeps only room ids, never room state.
type CronScheduler struct {
	cron  gocron.Scheduler
	clock clockwork.Clock
	log   *slog.Logger

	mu      sync.Mutex
	seq     uint64
	pending map[string]pendingJob
}

func New(clock clockwork.Clock, log *slog.Logger) (*CronScheduler, error) {
	cron, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	return &CronScheduler{
		cron:    cron,
		clock:   clock,
		log:     log,
		pending: make(map[string]pendingJob),
	}, nil
}

func (s *CronScheduler) Start() {
	s.cron.Start()
}

func (s *CronScheduler) Shutdown() error {
	return s.cron.Shutdown()
}

func (s *CronScheduler) Schedule(roomID string, fireAt time.Time, action func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.pending[roomID]; ok {
		delete(s.pending, roomID)
		s.removeJob(prev.jobID)
	}

	s.seq++
	seq := s.seq
	task := gocron.NewTask(func() {
		if s.take(roomID, seq) {
			action()
		}
	})

	start := gocron.OneTimeJobStartImmediately()
	if fireAt.After(s.clock.Now()) {
		start = gocron.OneTimeJobStartDateTime(fireAt)
	}

	job, err := s.cron.NewJob(gocron.OneTimeJob(start), task, gocron.WithName("close-room:"+roomID))
	if errors.Is(err, gocron.ErrOneTimeJobStartDateTimePast) {
		// the deadline passed between the check and registration
		job, err = s.cron.NewJob(gocron.OneTimeJob(gocron.OneTimeJobStartImmediately()), task, gocron.WithName("close-room:"+roomID))
	}
	if err != nil {
		return fmt.Errorf("schedule closure of room %s: %w", roomID, err)
	}

	s.pending[roomID] = pendingJob{seq: seq, jobID: job.ID(), fireAt: fireAt}
	s.log.Debug("room closure scheduled", "room_id", roomID, "fire_at", fireAt)
	return nil
}

func (s *CronScheduler) Cancel(roomID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[roomID]
	if !ok {
		return false
	}
	delete(s.pending, roomID)
	s.removeJob(p.jobID)

	s.log.Debug("room closure cancelled", "room_id", roomID)
	return true
}

// PendingAt reports when a room's closure fires, if one is pending.
func (s *CronScheduler) PendingAt(roomID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[roomID]
	return p.fireAt, ok
}

// Len is the number of pending closures.
func (s *CronScheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Every runs task on a fixed interval. A run still in progress when the next one is
// due makes the scheduler skip that tick.
func (s *CronScheduler) Every(name string, interval time.Duration, task func()) error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// take claims the right to fire. Only the job registered under seq may claim it,
// and only once.
func (s *CronScheduler) take(roomID string, seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[roomID]
	if !ok || p.seq != seq {
		return false
	}
	delete(s.pending, roomID)
	return true
}

func (s *CronScheduler) removeJob(id uuid.UUID) {
	if err := s.cron.RemoveJob(id); err != nil && !errors.Is(err, gocron.ErrJobNotFound) {
		s.log.Warn("remove scheduled job", "job_id", id, "error", err)
	}
}
