package sqlite

import (
	"context"
	"errors"
	"fmt"

	"remindbot/internal/domain/entity"
	"remindbot/internal/domain/repository"
	appErrors "remindbot/internal/pkg/errors"

	"gorm.io/gorm"
)

type jobStore struct {
	db *gorm.DB
}

// NewJobStore creates a new instance of JobStore backed by the given database.
func NewJobStore(db *gorm.DB) repository.JobStore {
	return &jobStore{db: db}
}

// Put inserts a new job. The primary key arbitrates duplicate ids.
func (s *jobStore) Put(ctx context.Context, job *entity.Job) error {
	if err := s.db.WithContext(ctx).Create(job).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("job %q: %w", job.ID, appErrors.ErrAlreadyExists)
		}
		return fmt.Errorf("%w: failed to create job %q: %v", appErrors.ErrDatabaseOperation, job.ID, err)
	}
	return nil
}

// Get retrieves a job by its id.
func (s *jobStore) Get(ctx context.Context, id string) (*entity.Job, error) {
	var job entity.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job %q: %w", id, appErrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to find job %q: %v", appErrors.ErrDatabaseOperation, id, err)
	}
	return &job, nil
}

// Remove atomically deletes and returns the job with the given id. The
// transaction makes the read-then-delete a single winner under races.
func (s *jobStore) Remove(ctx context.Context, id string) (*entity.Job, error) {
	var job entity.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&job, "id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&entity.Job{}, "id = ?", id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("job %q: %w", id, appErrors.ErrNotFound)
		}
		return nil, fmt.Errorf("%w: failed to remove job %q: %v", appErrors.ErrDatabaseOperation, id, err)
	}
	return &job, nil
}

// List retrieves all pending jobs in run order.
func (s *jobStore) List(ctx context.Context) ([]*entity.Job, error) {
	var jobs []*entity.Job
	if err := s.db.WithContext(ctx).Order("fire_at asc, id asc").Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("%w: failed to list jobs: %v", appErrors.ErrDatabaseOperation, err)
	}
	return jobs, nil
}

// Clear removes all pending jobs and returns the removed count.
func (s *jobStore) Clear(ctx context.Context) (int64, error) {
	res := s.db.WithContext(ctx).Where("1 = 1").Delete(&entity.Job{})
	if res.Error != nil {
		return 0, fmt.Errorf("%w: failed to clear jobs: %v", appErrors.ErrDatabaseOperation, res.Error)
	}
	return res.RowsAffected, nil
}
