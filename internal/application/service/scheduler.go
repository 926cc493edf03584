package service

import (
	"context"

	"remindbot/internal/domain/entity"
)

// SchedulerService guarantees each pending job fires at-or-after its fire
// time, exactly once, across process restarts, without busy-polling.
type SchedulerService interface {
	// Schedule persists a job and arms a timer for it. Jobs whose fire
	// time is already in the past fire immediately instead of erroring.
	Schedule(ctx context.Context, job *entity.Job) error
	// Cancel removes a pending job, disarming its timer. The store's
	// atomic remove arbitrates races against an in-flight fire.
	Cancel(ctx context.Context, id string) (*entity.Job, error)
	// List returns all pending jobs in run order.
	List(ctx context.Context) ([]*entity.Job, error)
	// Clear removes all pending jobs and disarms their timers, returning
	// how many were removed.
	Clear(ctx context.Context) (int64, error)
	// InitializeSchedules reconciles in-memory timers against the store
	// on startup: past-due jobs fire once each, future jobs are re-armed.
	InitializeSchedules(ctx context.Context) error
	// Stop stops the underlying timer runner.
	Stop()
}
