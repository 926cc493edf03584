package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"remindbot/internal/domain/entity"
	"remindbot/internal/domain/repository"
	"remindbot/internal/infrastructure/database/sqlite"
	"remindbot/internal/infrastructure/scheduler"
	"remindbot/internal/pkg/clock"
	appErrors "remindbot/internal/pkg/errors"
	"remindbot/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fireRecorder collects fired payloads for assertions.
type fireRecorder struct {
	mu       sync.Mutex
	payloads []entity.Payload
}

func (r *fireRecorder) handle(_ context.Context, p entity.Payload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, p)
	return nil
}

func (r *fireRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.payloads)
}

func newTestStore(t *testing.T, path string) repository.JobStore {
	t.Helper()
	db, err := sqlite.NewDB(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.CloseDB(db) })
	return sqlite.NewJobStore(db)
}

func newTestScheduler(t *testing.T, store repository.JobStore) (SchedulerService, *fireRecorder) {
	t.Helper()
	log := logger.New()
	clk := clock.NewInLocation(time.UTC)
	cronRunner := scheduler.NewCron(clk.Location(), log)
	t.Cleanup(cronRunner.Stop)

	svc := NewSchedulerService(cronRunner, store, clk, log)
	rec := &fireRecorder{}
	svc.(*schedulerService).SetFireHandler(rec.handle)
	return svc, rec
}

func testJob(id string, fireAt time.Time) *entity.Job {
	return &entity.Job{ID: id, FireAt: fireAt, Text: id, Room: "test-room"}
}

func TestScheduler_PastDueFiresImmediately(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "jobs.sqlite"))
	svc, rec := newTestScheduler(t, store)
	ctx := context.Background()

	require.NoError(t, svc.Schedule(ctx, testJob("walk the dog", time.Now().UTC().Add(-time.Hour))))

	require.Eventually(t, func() bool { return rec.count() == 1 }, 3*time.Second, 10*time.Millisecond,
		"past-due job should fire promptly")

	// Fired exactly once, and the job is gone from the store.
	assert.Equal(t, 1, rec.count())
	jobs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	assert.Equal(t, entity.Payload{Text: "walk the dog", Room: "test-room"}, rec.payloads[0])
}

func TestScheduler_FiresAtScheduledTime(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "jobs.sqlite"))
	svc, rec := newTestScheduler(t, store)
	ctx := context.Background()

	fireAt := time.Now().UTC().Add(2 * time.Second).Truncate(time.Second)
	require.NoError(t, svc.Schedule(ctx, testJob("near future", fireAt)))

	// Still pending before the fire time.
	jobs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, 0, rec.count())

	require.Eventually(t, func() bool { return rec.count() == 1 }, 6*time.Second, 50*time.Millisecond)
	assert.False(t, time.Now().UTC().Before(fireAt), "must not fire before its fire time")

	jobs, err = svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestScheduler_SubSecondFireTimeNeverFiresEarly(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "jobs.sqlite"))
	ctx := context.Background()

	log := logger.New()
	clk := clock.NewInLocation(time.UTC)
	cronRunner := scheduler.NewCron(clk.Location(), log)
	t.Cleanup(cronRunner.Stop)

	var mu sync.Mutex
	var firedAt time.Time
	svc := NewSchedulerService(cronRunner, store, clk, log)
	svc.(*schedulerService).SetFireHandler(func(_ context.Context, _ entity.Payload) error {
		mu.Lock()
		firedAt = time.Now().UTC()
		mu.Unlock()
		return nil
	})

	// A fire time 900ms past a second boundary, as produced by relative
	// parses that keep the nanoseconds of the current time.
	fireAt := time.Now().UTC().Add(2 * time.Second).Truncate(time.Second).Add(900 * time.Millisecond)
	require.NoError(t, svc.Schedule(ctx, testJob("sub-second", fireAt)))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return !firedAt.IsZero()
	}, 6*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.False(t, firedAt.Before(fireAt),
		"job fired %s before its fire time", fireAt.Sub(firedAt))
}

func TestScheduler_DuplicateIDRejected(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "jobs.sqlite"))
	svc, _ := newTestScheduler(t, store)
	ctx := context.Background()
	future := time.Now().UTC().Add(time.Hour)

	require.NoError(t, svc.Schedule(ctx, testJob("walk the dog", future)))
	err := svc.Schedule(ctx, testJob("walk the dog", future.Add(time.Hour)))
	require.ErrorIs(t, err, appErrors.ErrAlreadyExists)
}

func TestScheduler_CancelUnknown(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "jobs.sqlite"))
	svc, _ := newTestScheduler(t, store)
	ctx := context.Background()

	_, err := svc.Cancel(ctx, "never scheduled")
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	jobs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestScheduler_CancelPendingJob(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "jobs.sqlite"))
	svc, rec := newTestScheduler(t, store)
	ctx := context.Background()
	fireAt := time.Now().UTC().Add(time.Hour)

	require.NoError(t, svc.Schedule(ctx, testJob("feed the cat", fireAt)))

	job, err := svc.Cancel(ctx, "feed the cat")
	require.NoError(t, err)
	assert.Equal(t, "feed the cat", job.ID)

	jobs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 0, rec.count())
}

func TestScheduler_ClearDisarmsAll(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "jobs.sqlite"))
	svc, rec := newTestScheduler(t, store)
	ctx := context.Background()
	future := time.Now().UTC().Add(time.Hour)

	require.NoError(t, svc.Schedule(ctx, testJob("one", future)))
	require.NoError(t, svc.Schedule(ctx, testJob("two", future.Add(time.Minute))))

	count, err := svc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, err = svc.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)

	jobs, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, 0, rec.count())
}

func TestScheduler_ClearRacingScheduleStrandsNoJob(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "jobs.sqlite"))
	svc, _ := newTestScheduler(t, store)
	ctx := context.Background()

	// Race schedules against clears. Whatever the interleaving, every job
	// that survives a clear must keep a live timer and still fire.
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("race-%d", i)
		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = svc.Schedule(ctx, testJob(id, time.Now().UTC().Add(1500*time.Millisecond)))
		}()
		go func() {
			defer wg.Done()
			_, err := svc.Clear(ctx)
			assert.NoError(t, err)
		}()
		wg.Wait()
	}

	// Survivors fire at their time and drain the store without a restart.
	require.Eventually(t, func() bool {
		jobs, err := svc.List(ctx)
		require.NoError(t, err)
		return len(jobs) == 0
	}, 8*time.Second, 50*time.Millisecond, "a cleared-then-rescheduled job was left with no timer")
}

func TestScheduler_RestartRecoversPendingJobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jobs.sqlite")
	store := newTestStore(t, path)
	ctx := context.Background()

	// Jobs persisted by a previous process: one missed during downtime,
	// one still in the future.
	require.NoError(t, store.Put(ctx, testJob("missed", time.Now().UTC().Add(-time.Hour))))
	require.NoError(t, store.Put(ctx, testJob("upcoming", time.Now().UTC().Add(time.Hour))))

	// Fresh scheduler with empty in-memory timers reconciles from the store.
	svc, rec := newTestScheduler(t, store)
	require.NoError(t, svc.InitializeSchedules(ctx))

	require.Eventually(t, func() bool { return rec.count() == 1 }, 3*time.Second, 10*time.Millisecond,
		"missed job should fire once on startup")

	jobs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "upcoming", jobs[0].ID)

	// No double fire of the recovered job.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestScheduler_ConcurrentCancelAndFire(t *testing.T) {
	store := newTestStore(t, filepath.Join(t.TempDir(), "jobs.sqlite"))
	ctx := context.Background()

	log := logger.New()
	clk := clock.NewInLocation(time.UTC)
	cronRunner := scheduler.NewCron(clk.Location(), log)
	t.Cleanup(cronRunner.Stop)

	var fired atomic.Int32
	svc := NewSchedulerService(cronRunner, store, clk, log)
	svc.(*schedulerService).SetFireHandler(func(_ context.Context, _ entity.Payload) error {
		fired.Add(1)
		return nil
	})

	for i := 0; i < 20; i++ {
		fired.Store(0)

		// Past-due schedule races the immediate fire against the cancel.
		require.NoError(t, svc.Schedule(ctx, testJob("contested", time.Now().UTC().Add(-time.Minute))))

		cancelled := int32(0)
		if _, err := svc.Cancel(ctx, "contested"); err == nil {
			cancelled = 1
		} else {
			require.ErrorIs(t, err, appErrors.ErrNotFound)
		}

		// Exactly one of cancel and fire consumes the job, never both,
		// never neither.
		require.Eventually(t, func() bool {
			return cancelled+fired.Load() == 1
		}, 3*time.Second, 5*time.Millisecond)

		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, int32(1), cancelled+fired.Load())

		jobs, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, jobs)
	}
}
