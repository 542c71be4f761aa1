package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/message"
)

// processMessage runs one flow message through the flow manager
func (w *Worker) processMessage(ctx context.Context, msg *message.Message) error {
	if w.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
	}

	switch msg.Kind {
	case message.KindJobUpdated:
		return w.processJobUpdated(ctx, msg)
	case message.KindObjectChanged:
		return w.processObjectChanged(ctx, msg)
	case message.KindObjectAdded, message.KindObjectDeleted, message.KindReadyForReplacement:
		return w.processObjectEvent(ctx, msg)
	}
	return fmt.Errorf("%w: unknown kind %q", domain.ErrInvalidMessage, msg.Kind)
}

// processJobUpdated dispatches a job status change under the job's lock
func (w *Worker) processJobUpdated(ctx context.Context, msg *message.Message) error {
	release, err := w.locker.Acquire(ctx, jobLockKey(msg.JobID))
	if err != nil {
		if errors.Is(err, domain.ErrLockNotAcquired) {
			return domain.NewRetryableError(err)
		}
		return domain.NewRetryableError(fmt.Errorf("failed to lock job %s: %w", msg.JobID, err))
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			w.logger.Warn("Failed to release job lock",
				slog.String("job_id", msg.JobID),
				slog.String("error", err.Error()),
			)
		}
	}()

	job, err := w.loadJob(ctx, msg.JobID)
	if err != nil {
		return err
	}

	var twin *domain.Job
	if msg.TwinJobID != "" {
		twin, err = w.loadJob(ctx, msg.TwinJobID)
		if errors.Is(err, domain.ErrJobNotFound) {
			twin, err = nil, nil
		}
		if err != nil {
			return err
		}
	}

	w.logger.Info("Dispatching job status change",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.JobType)),
		slog.String("status", string(job.Status)),
	)
	w.flow.OnJobStatusChanged(ctx, job, twin)
	return nil
}

func (w *Worker) loadJob(ctx context.Context, jobID string) (*domain.Job, error) {
	job, err := w.jobs.GetJob(ctx, jobID)
	if errors.Is(err, domain.ErrJobNotFound) {
		return nil, fmt.Errorf("job %s: %w", jobID, err)
	}
	if err != nil {
		return nil, domain.NewRetryableError(fmt.Errorf("failed to load job %s: %w", jobID, err))
	}
	return job, nil
}

func (w *Worker) processObjectChanged(ctx context.Context, msg *message.Message) error {
	ev, err := msg.ChangedEvent()
	if err != nil {
		return err
	}
	if !w.flow.ShouldConsumeChangedEvent(ev) {
		return nil
	}
	_, err = w.flow.ObjectChanged(ctx, ev)
	return err
}

func (w *Worker) processObjectEvent(ctx context.Context, msg *message.Message) error {
	obj, err := msg.DecodeObject()
	if err != nil {
		return err
	}

	switch msg.Kind {
	case message.KindObjectAdded:
		if !w.flow.ShouldConsumeAddedEvent(obj) {
			return nil
		}
		raisedJob, err := w.raisedJob(ctx, msg.RaisedJobID)
		if err != nil {
			return err
		}
		_, err = w.flow.ObjectAdded(ctx, obj, raisedJob)
		return err

	case message.KindObjectDeleted:
		if !w.flow.ShouldConsumeDeletedEvent(obj) {
			return nil
		}
		_, err = w.flow.ObjectDeleted(ctx, obj)
		return err

	default:
		if !w.flow.ShouldConsumeReadyForReplacementEvent(obj) {
			return nil
		}
		_, err = w.flow.ObjectReadyForReplacement(ctx, obj)
		return err
	}
}

// raisedJob loads the job whose work raised an event. A missing job is not an error.
func (w *Worker) raisedJob(ctx context.Context, jobID string) (*domain.Job, error) {
	if jobID == "" {
		return nil, nil
	}
	job, err := w.loadJob(ctx, jobID)
	if errors.Is(err, domain.ErrJobNotFound) {
		return nil, nil
	}
	return job, err
}
