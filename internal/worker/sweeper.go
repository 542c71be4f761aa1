package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/message"
)

const defaultSweepBatch = 500

// SweepStore lists jobs whose check-again timeout elapsed.
type SweepStore interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListDueJobs(ctx context.Context, statuses []domain.JobStatus, dueBy time.Time, limit int) ([]*domain.Job, error)
}

// StatusUpdater moves a job to a new status and announces it.
type StatusUpdater interface {
	UpdateStatus(ctx context.Context, job *domain.Job, status domain.JobStatus) (*domain.Job, error)
}

// Publisher delivers encoded flow messages.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// SweeperConfig holds sweeper configuration
type SweeperConfig struct {
	Logger    *slog.Logger
	Jobs      SweepStore
	Manager   StatusUpdater
	Publisher Publisher
	Locker    Locker
	Schedule  string
	BatchSize int
}

// Sweeper periodically returns retrying jobs to the queue and re-checks
// almost-done jobs once their check-again timeout elapsed.
type Sweeper struct {
	logger    *slog.Logger
	jobs      SweepStore
	manager   StatusUpdater
	publisher Publisher
	locker    Locker
	schedule  string
	batchSize int
	cron      *cron.Cron
	now       func() time.Time
}

// NewSweeper validates the schedule and creates a sweeper
func NewSweeper(cfg *SweeperConfig) (*Sweeper, error) {
	if _, err := cron.ParseStandard(cfg.Schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", cfg.Schedule, err)
	}

	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultSweepBatch
	}

	logger := cfg.Logger.With(slog.String("component", "sweeper"))
	cronLogger := cron.PrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))

	return &Sweeper{
		logger:    logger,
		jobs:      cfg.Jobs,
		manager:   cfg.Manager,
		publisher: cfg.Publisher,
		locker:    cfg.Locker,
		schedule:  cfg.Schedule,
		batchSize: batch,
		cron: cron.New(
			cron.WithLogger(cronLogger),
			cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)),
		),
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

// Start runs sweeps on the schedule until ctx is canceled
func (s *Sweeper) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.schedule, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger.Error("Sweep failed", slog.String("error", err.Error()))
		}
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}

	s.logger.Info("Sweeper started", slog.String("schedule", s.schedule))
	s.cron.Start()

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("Sweeper stopped")
	return nil
}

// Sweep handles every due job once and returns how many it touched
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	statuses := []domain.JobStatus{domain.JobStatusRetry, domain.JobStatusAlmostDone}
	due, err := s.jobs.ListDueJobs(ctx, statuses, s.now(), s.batchSize)
	if err != nil {
		return 0, fmt.Errorf("failed to list due jobs: %w", err)
	}

	swept := 0
	for _, job := range due {
		switch job.Status {
		case domain.JobStatusRetry:
			requeued, err := s.requeue(ctx, job.ID)
			if err != nil {
				return swept, err
			}
			if !requeued {
				continue
			}
		case domain.JobStatusAlmostDone:
			body, err := message.JobUpdated(job.ID, "").Encode()
			if err != nil {
				return swept, err
			}
			if err := s.publisher.PublishWithRetry(ctx, body, message.ContentType); err != nil {
				return swept, fmt.Errorf("failed to recheck job %s: %w", job.ID, err)
			}
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info("Sweep completed", slog.Int("jobs", swept))
	}
	return swept, nil
}

// requeue moves a RETRY job back to PENDING under the job's lock. The job is
// re-read under the lock and left alone unless it is still in RETRY. A busy
// lock skips the job until the next sweep.
func (s *Sweeper) requeue(ctx context.Context, jobID string) (bool, error) {
	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, jobLockKey(jobID))
		if errors.Is(err, domain.ErrLockNotAcquired) {
			s.logger.Debug("Job locked, requeue deferred", slog.String("job_id", jobID))
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to lock job %s: %w", jobID, err)
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("Failed to release job lock",
					slog.String("job_id", jobID),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	job, err := s.jobs.GetJob(ctx, jobID)
	if errors.Is(err, domain.ErrJobNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to reload job %s: %w", jobID, err)
	}
	if job.Status != domain.JobStatusRetry {
		return false, nil
	}

	if _, err := s.manager.UpdateStatus(ctx, job, domain.JobStatusPending); err != nil {
		return false, fmt.Errorf("failed to requeue job %s: %w", jobID, err)
	}
	return true, nil
}
