package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"remindbot/internal/domain/entity"
	"remindbot/internal/domain/repository"
	"remindbot/internal/infrastructure/scheduler"
	"remindbot/internal/pkg/clock"
	appErrors "remindbot/internal/pkg/errors"
	"remindbot/internal/pkg/logger"

	"github.com/robfig/cron/v3"
)

type schedulerService struct {
	cronScheduler *scheduler.Cron
	store         repository.JobStore
	clk           *clock.Clock
	// Set after construction to break the circular dependency with
	// ReminderService, which owns the outbound notification logic.
	fireHandler func(ctx context.Context, payload entity.Payload) error
	log         logger.Logger
	// Timer handles are a cache keyed by job id; the store is the source
	// of truth. map[jobID]cron.EntryID
	entries map[string]cron.EntryID
	mu      sync.Mutex // Protect entries access
}

// NewSchedulerService creates a new instance of SchedulerService.
// Note: the fire handler needs to be set later to avoid circular deps.
func NewSchedulerService(
	cronScheduler *scheduler.Cron,
	store repository.JobStore,
	clk *clock.Clock,
	log logger.Logger,
) SchedulerService {
	return &schedulerService{
		cronScheduler: cronScheduler,
		store:         store,
		clk:           clk,
		log:           log,
		entries:       make(map[string]cron.EntryID),
	}
}

// SetFireHandler sets the function invoked with a job's payload when it
// fires. Called during dependency injection setup.
func (s *schedulerService) SetFireHandler(handler func(ctx context.Context, payload entity.Payload) error) {
	s.fireHandler = handler
}

// formatCronSpec generates a one-shot cron spec for a specific time.
func formatCronSpec(t time.Time) string {
	// Seconds Minutes Hours DayOfMonth Month DayOfWeek
	return fmt.Sprintf("%d %d %d %d %d *", t.Second(), t.Minute(), t.Hour(), t.Day(), int(t.Month()))
}

// storeEntry records the cron EntryID armed for a job.
func (s *schedulerService) storeEntry(jobID string, entryID cron.EntryID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jobID] = entryID
}

// removeEntry removes and returns the cron EntryID armed for a job.
func (s *schedulerService) removeEntry(jobID string) (cron.EntryID, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entryID, ok := s.entries[jobID]
	if ok {
		delete(s.entries, jobID)
	}
	return entryID, ok
}

// Schedule persists the job and arms its timer.
func (s *schedulerService) Schedule(ctx context.Context, job *entity.Job) error {
	if s.fireHandler == nil {
		s.log.Error("Fire handler is not set in SchedulerService", nil)
		return fmt.Errorf("%w: fire handler not set", appErrors.ErrInternalServer)
	}

	if err := s.store.Put(ctx, job); err != nil {
		return err
	}

	if !job.FireAt.After(s.clk.Now()) {
		// Requested time has already elapsed: fire once, immediately,
		// rather than silently dropping the reminder.
		s.log.Info(fmt.Sprintf("Job %q is past due, firing immediately", job.ID))
		go s.fire(job.ID)
		return nil
	}

	if err := s.arm(job.ID, job.FireAt); err != nil {
		// The record stays in the store; a restart will pick it up.
		return err
	}
	s.log.Info(fmt.Sprintf("Scheduled job %q at %v", job.ID, job.FireAt))
	return nil
}

// arm registers a one-shot cron entry for the job.
func (s *schedulerService) arm(jobID string, fireAt time.Time) error {
	fireAt = s.clk.In(fireAt)

	// Cron precision is whole seconds: round the spec up so the entry
	// can never elapse before a sub-second fire time.
	cronAt := fireAt
	if trunc := cronAt.Truncate(time.Second); !cronAt.Equal(trunc) {
		cronAt = trunc.Add(time.Second)
	}
	spec := formatCronSpec(cronAt)

	jobFunc := func() {
		// The cron spec has no year field, so a job more than a year out
		// matches a year early. Leave the entry armed until its time.
		if s.clk.Now().Before(fireAt) {
			s.log.Warn(fmt.Sprintf("Timer for job %q elapsed before its fire time %v, keeping it armed", jobID, fireAt))
			return
		}
		s.fire(jobID)
	}

	entryID, err := s.cronScheduler.AddJob(spec, jobFunc)
	if err != nil {
		return fmt.Errorf("%w: %v", appErrors.ErrScheduling, err)
	}
	s.storeEntry(jobID, entryID)
	return nil
}

// fire consumes a job and invokes the fire handler exactly once. The
// store's atomic remove is the single arbiter against concurrent cancels
// and duplicate timers.
func (s *schedulerService) fire(jobID string) {
	if entryID, ok := s.removeEntry(jobID); ok {
		s.cronScheduler.RemoveJob(entryID)
	}

	job, err := s.store.Remove(context.Background(), jobID)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			// Cancelled or already consumed by another path.
			s.log.Debug(fmt.Sprintf("Job %q no longer in store at fire time, skipping", jobID))
			return
		}
		s.log.Error(fmt.Sprintf("Failed to remove job %q at fire time", jobID), err)
		return
	}

	s.log.Info(fmt.Sprintf("Firing job %q", jobID))
	// Delivery is at-most-once: handler failures are logged, never
	// retried, and the job is not resurrected.
	if err := s.fireHandler(context.Background(), job.Payload()); err != nil {
		s.log.Error(fmt.Sprintf("Fire handler failed for job %q", jobID), err)
	}
}

// Cancel removes a pending job and disarms its timer.
func (s *schedulerService) Cancel(ctx context.Context, id string) (*entity.Job, error) {
	job, err := s.store.Remove(ctx, id)

	// Disarm regardless of the store outcome; the handle is only a cache.
	if entryID, ok := s.removeEntry(id); ok {
		s.cronScheduler.RemoveJob(entryID)
	}

	if err != nil {
		return nil, err
	}
	s.log.Info(fmt.Sprintf("Cancelled job %q", id))
	return job, nil
}

// List returns all pending jobs in run order.
func (s *schedulerService) List(ctx context.Context) ([]*entity.Job, error) {
	return s.store.List(ctx)
}

// Clear removes all pending jobs and disarms their timers. Timers are
// swapped out before the store delete: an entry armed by a concurrent
// Schedule after the swap either keeps its record (put after the delete)
// or fires into ErrNotFound, which the fire protocol absorbs. Disarming
// after the delete could strand a freshly-put job with no timer.
func (s *schedulerService) Clear(ctx context.Context) (int64, error) {
	s.mu.Lock()
	removed := s.entries
	s.entries = make(map[string]cron.EntryID)
	s.mu.Unlock()
	for _, entryID := range removed {
		s.cronScheduler.RemoveJob(entryID)
	}

	count, err := s.store.Clear(ctx)
	if err != nil {
		return 0, err
	}

	s.log.Info(fmt.Sprintf("Cleared %d jobs", count))
	return count, nil
}

// InitializeSchedules loads jobs from the store and re-arms them on startup.
func (s *schedulerService) InitializeSchedules(ctx context.Context) error {
	if s.fireHandler == nil {
		s.log.Error("Fire handler is not set in SchedulerService", nil)
		return fmt.Errorf("%w: fire handler not set", appErrors.ErrInternalServer)
	}

	s.log.Info("Initializing schedules from store...")
	jobs, err := s.store.List(ctx)
	if err != nil {
		s.log.Error("Failed to retrieve jobs for initialization", err)
		return err
	}

	now := s.clk.Now()
	armedCount := 0
	firedCount := 0

	for _, job := range jobs {
		if !job.FireAt.After(now) {
			// Missed during downtime: fire once, immediately.
			go s.fire(job.ID)
			firedCount++
			continue
		}
		if err := s.arm(job.ID, job.FireAt); err != nil {
			s.log.Error(fmt.Sprintf("Failed to arm job %q during init", job.ID), err)
			// Continue trying to arm others
			continue
		}
		armedCount++
	}

	s.log.Info(fmt.Sprintf("Schedule initialization complete. Armed: %d, Fired past due: %d", armedCount, firedCount))
	return nil
}

// Stop stops the underlying cron runner.
func (s *schedulerService) Stop() {
	s.cronScheduler.Stop()
}
