package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/jobs"
	"github.com/cuongbtq/batchflow/internal/message"
	"github.com/cuongbtq/batchflow/internal/storage/memory"
)

type recordingPublisher struct {
	mu     sync.Mutex
	jobIDs []string
}

func (p *recordingPublisher) PublishWithRetry(_ context.Context, body []byte, _ string) error {
	msg, err := message.Decode(body)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobIDs = append(p.jobIDs, msg.JobID)
	return nil
}

func (p *recordingPublisher) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.jobIDs = nil
}

func TestNewSweeper_InvalidSchedule(t *testing.T) {
	_, err := NewSweeper(&SweeperConfig{Logger: discardLogger(), Schedule: "every minute"})
	require.Error(t, err)
}

func TestSweeper_Sweep(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	publisher := &recordingPublisher{}
	manager := jobs.NewManager(store, publisher, discardLogger())
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	add := func(status domain.JobStatus, checkAgain *time.Time) *domain.Job {
		job := domain.NewJob(domain.JobTypeConvert, &domain.ConvertData{})
		job.Status = status
		job.CheckAgainTimeout = checkAgain
		require.NoError(t, store.CreateJob(ctx, job))
		return job
	}
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	dueRetry := add(domain.JobStatusRetry, &past)
	waitingRetry := add(domain.JobStatusRetry, &future)
	dueAlmostDone := add(domain.JobStatusAlmostDone, &now)
	unscheduled := add(domain.JobStatusAlmostDone, nil)
	add(domain.JobStatusProcessing, &past)

	sweeper, err := NewSweeper(&SweeperConfig{
		Logger:    discardLogger(),
		Jobs:      store,
		Manager:   manager,
		Publisher: publisher,
		Schedule:  "*/5 * * * *",
	})
	require.NoError(t, err)
	sweeper.now = func() time.Time { return now }
	assert.Equal(t, defaultSweepBatch, sweeper.batchSize)

	swept, err := sweeper.Sweep(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, swept)
	assert.ElementsMatch(t, []string{dueRetry.ID, dueAlmostDone.ID}, publisher.jobIDs)

	requeued, err := store.GetJob(ctx, dueRetry.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, requeued.Status)

	for _, id := range []string{waitingRetry.ID, dueAlmostDone.ID, unscheduled.ID} {
		job, err := store.GetJob(ctx, id)
		require.NoError(t, err)
		assert.NotEqual(t, domain.JobStatusPending, job.Status)
	}

	publisher.reset()
	swept, err = sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept, "almost done jobs are rechecked until they move on")
	assert.Equal(t, []string{dueAlmostDone.ID}, publisher.jobIDs)
}

func newTestSweeper(t *testing.T, store SweepStore, manager StatusUpdater, locker Locker, batch int) *Sweeper {
	t.Helper()
	sweeper, err := NewSweeper(&SweeperConfig{
		Logger:    discardLogger(),
		Jobs:      store,
		Manager:   manager,
		Publisher: &recordingPublisher{},
		Locker:    locker,
		Schedule:  "@every 1m",
		BatchSize: batch,
	})
	require.NoError(t, err)
	return sweeper
}

func TestSweeper_DueJobBehindWaitingJobs(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	manager := jobs.NewManager(store, &recordingPublisher{}, discardLogger())
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

	add := func(createdAt, checkAgain time.Time) *domain.Job {
		job := domain.NewJob(domain.JobTypeConvert, &domain.ConvertData{})
		job.Status = domain.JobStatusRetry
		job.CreatedAt = createdAt
		job.CheckAgainTimeout = &checkAgain
		require.NoError(t, store.CreateJob(ctx, job))
		return job
	}
	for i := 0; i < 3; i++ {
		add(now.Add(-time.Hour+time.Duration(i)*time.Second), now.Add(time.Hour))
	}
	due := add(now.Add(-time.Minute), now.Add(-time.Second))

	sweeper := newTestSweeper(t, store, manager, &fakeLocker{}, 3)
	sweeper.now = func() time.Time { return now }

	swept, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	job, err := store.GetJob(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusPending, job.Status)
}

func TestSweeper_RequeueLocking(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)

	tests := []struct {
		name       string
		locker     *fakeLocker
		wantSwept  int
		wantStatus domain.JobStatus
		wantLocked bool
		wantErr    bool
	}{
		{name: "lock held while requeueing", locker: &fakeLocker{}, wantSwept: 1, wantStatus: domain.JobStatusPending, wantLocked: true},
		{name: "busy lock defers the job", locker: &fakeLocker{err: domain.ErrLockNotAcquired}, wantStatus: domain.JobStatusRetry},
		{name: "lock failure is returned", locker: &fakeLocker{err: errors.New("redis down")}, wantStatus: domain.JobStatusRetry, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			manager := jobs.NewManager(store, &recordingPublisher{}, discardLogger())
			job := domain.NewJob(domain.JobTypeImport, &domain.ImportData{})
			job.Status = domain.JobStatusRetry
			job.CheckAgainTimeout = &past
			require.NoError(t, store.CreateJob(ctx, job))

			sweeper := newTestSweeper(t, store, manager, tt.locker, 10)
			sweeper.now = func() time.Time { return now }

			swept, err := sweeper.Sweep(ctx)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantSwept, swept)

			got, err := store.GetJob(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)

			if tt.wantLocked {
				assert.Equal(t, []string{jobLockKey(job.ID)}, tt.locker.acquired)
				assert.Equal(t, 1, tt.locker.released)
			}
		})
	}
}

// staleSweepStore lists a snapshot taken before the job moved on.
type staleSweepStore struct {
	*memory.Store
	snapshot []*domain.Job
}

func (s *staleSweepStore) ListDueJobs(context.Context, []domain.JobStatus, time.Time, int) ([]*domain.Job, error) {
	return s.snapshot, nil
}

func TestSweeper_SkipsJobChangedSinceListing(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	manager := jobs.NewManager(store, &recordingPublisher{}, discardLogger())
	past := time.Now().Add(-time.Minute)

	job := domain.NewJob(domain.JobTypeImport, &domain.ImportData{})
	job.Status = domain.JobStatusRetry
	job.CheckAgainTimeout = &past
	require.NoError(t, store.CreateJob(ctx, job))
	snapshot := job.Clone()

	// A concurrent dispatch finished the job after the sweep listed it
	job.Status = domain.JobStatusFinished
	require.NoError(t, store.UpdateJob(ctx, job))

	sweeper := newTestSweeper(t, &staleSweepStore{Store: store, snapshot: []*domain.Job{snapshot}}, manager, &fakeLocker{}, 10)

	swept, err := sweeper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, swept)

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusFinished, got.Status)
}

func TestSweeper_StartStops(t *testing.T) {
	sweeper, err := NewSweeper(&SweeperConfig{
		Logger:    discardLogger(),
		Jobs:      memory.New(),
		Schedule:  "@every 1h",
		BatchSize: 10,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
