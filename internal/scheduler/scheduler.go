package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const tickTimeout = 30 * time.Minute

// maintenanceJob is a housekeeping task that shares the reminder cron.
type maintenanceJob struct {
	name     string
	schedule string
	fn       func(ctx context.Context) error
}

// Scheduler runs the reminder job on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	job      *ReminderJob
	schedule string
	entryID  cron.EntryID
	extra    []maintenanceJob
	extraIDs []cron.EntryID
	mu       sync.RWMutex
	running  bool
	ticking  atomic.Bool
	ctx      context.Context
	cancel   context.CancelFunc
	now      func() time.Time
}

func NewScheduler(job *ReminderJob, schedule string, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:     cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		job:      job,
		schedule: schedule,
		now:      time.Now,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.ctx, s.cancel = context.WithCancel(ctx)

	entryID, err := s.cron.AddFunc(normalizeSchedule(s.schedule), func() {
		if _, err := s.RunNow(s.ctx); err != nil {
			zap.L().Error("reminder tick failed", zap.Error(err))
		}
	})
	if err != nil {
		s.cancel()
		return fmt.Errorf("invalid cron expression '%s': %w", s.schedule, err)
	}
	s.entryID = entryID

	for _, job := range s.extra {
		id, err := s.cron.AddFunc(normalizeSchedule(job.schedule), func() {
			s.runMaintenance(job)
		})
		if err != nil {
			s.removeEntries()
			s.cancel()
			return fmt.Errorf("invalid cron expression '%s' for %s: %w", job.schedule, job.name, err)
		}
		s.extraIDs = append(s.extraIDs, id)
	}

	s.cron.Start()
	s.running = true

	zap.L().Info("scheduler started", zap.String("schedule", s.schedule))
	return nil
}

// Stop stops the scheduler gracefully
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()

	s.removeEntries()
	s.running = false
	zap.L().Info("scheduler stopped")
}

// AddJob registers a housekeeping task. Jobs added after Start take effect
// on the next Start.
func (s *Scheduler) AddJob(name, schedule string, fn func(ctx context.Context) error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extra = append(s.extra, maintenanceJob{name: name, schedule: schedule, fn: fn})
}

func (s *Scheduler) runMaintenance(job maintenanceJob) {
	ctx, cancel := context.WithTimeout(s.ctx, tickTimeout)
	defer cancel()

	start := time.Now()
	if err := job.fn(ctx); err != nil {
		zap.L().Error("maintenance job failed", zap.String("job", job.name), zap.Error(err))
		return
	}
	zap.L().Debug("maintenance job done", zap.String("job", job.name), zap.Duration("took", time.Since(start)))
}

func (s *Scheduler) removeEntries() {
	s.cron.Remove(s.entryID)
	for _, id := range s.extraIDs {
		s.cron.Remove(id)
	}
	s.extraIDs = nil
}

// RunNow runs a tick immediately. Overlapping ticks are skipped.
func (s *Scheduler) RunNow(ctx context.Context) (*TickResult, error) {
	if !s.ticking.CompareAndSwap(false, true) {
		zap.L().Info("reminder tick already running, skipping")
		return nil, nil
	}
	defer s.ticking.Store(false)

	ctx, cancel := context.WithTimeout(ctx, tickTimeout)
	defer cancel()

	result, err := s.job.Tick(ctx, s.now())
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// NextRun returns the next scheduled tick, or nil when stopped.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.running {
		return nil
	}
	entry := s.cron.Entry(s.entryID)
	if entry.Next.IsZero() {
		return nil
	}
	return &entry.Next
}

// IsRunning returns whether the scheduler is running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// normalizeSchedule expands shortcuts and adds a seconds field to
// five-field expressions.
func normalizeSchedule(schedule string) string {
	switch schedule {
	case "@hourly":
		return "0 0 * * * *"
	case "@daily":
		return "0 0 0 * * *"
	case "@weekly":
		return "0 0 0 * * 0"
	}
	if len(strings.Fields(schedule)) == 5 {
		return "0 " + schedule
	}
	return schedule
}
