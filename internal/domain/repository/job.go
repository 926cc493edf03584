package repository

import (
	"context"

	"remindbot/internal/domain/entity"
)

// JobStore defines the interface for durable pending-job persistence. The
// store is the sole owner of job records; every successful mutation is
// persisted before the call returns.
type JobStore interface {
	// Put inserts a new job. Returns ErrAlreadyExists if the id already
	// denotes a pending job.
	Put(ctx context.Context, job *entity.Job) error
	// Get retrieves a job by its id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*entity.Job, error)
	// Remove atomically deletes and returns the job with the given id.
	// Exactly one caller wins a race for the same id; losers get
	// ErrNotFound.
	Remove(ctx context.Context, id string) (*entity.Job, error)
	// List retrieves all pending jobs ordered by fire_at ascending, ties
	// broken by id.
	List(ctx context.Context) ([]*entity.Job, error)
	// Clear removes all pending jobs and returns how many were removed.
	Clear(ctx context.Context) (int64, error)
}
