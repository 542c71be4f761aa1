package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/cuongbtq/batchflow/internal/domain"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
	outcomePanic = "panic"
)

// OnJobStatusChanged applies the lifecycle rules for job's current status:
// timestamps, retry bookkeeping, child abort, the per-type handler, twin
// completion, the attempt limit and deferred entry deletion. twin is the
// duplicate job the change arrived with, if any.
//
// Failures never escape: errors and panics are logged and alerted, and the
// event is always reported as consumed.
func (m *Manager) OnJobStatusChanged(ctx context.Context, job *domain.Job, twin *domain.Job) (consumed bool) {
	if job == nil {
		m.logger.Warn("Ignoring status change without a job")
		return true
	}

	jobType, status := job.JobType, job.Status
	outcome := outcomeOK
	defer func() {
		if r := recover(); r != nil {
			outcome = outcomePanic
			m.fail(ctx, job, recoveredFault(r))
		}
		m.dispatched.Add(ctx, 1, metric.WithAttributes(
			attribute.String("job_type", string(jobType)),
			attribute.String("status", string(status)),
			attribute.String("outcome", outcome),
		))
		consumed = true
	}()

	if err := m.updatedJob(ctx, job, twin); err != nil {
		outcome = outcomeError
		m.fail(ctx, job, err)
	}
	return true
}

func (m *Manager) updatedJob(ctx context.Context, job *domain.Job, twin *domain.Job) error {
	now := m.now()

	if job.QueueTime == nil && job.Status != domain.JobStatusPending && job.Status != domain.JobStatusRetry {
		job.QueueTime = timePtr(now)
		if err := m.jobs.UpdateJob(ctx, job); err != nil {
			return newFault(fmt.Errorf("save queue time: %w", err))
		}
	}

	if job.Status == domain.JobStatusFinished && job.FinishTime == nil {
		job.FinishTime = timePtr(now)
		if err := m.jobs.UpdateJob(ctx, job); err != nil {
			return newFault(fmt.Errorf("save finish time: %w", err))
		}
	}

	switch {
	case job.Status == domain.JobStatusRetry:
		job.ExecutionAttempts++
		job.CheckAgainTimeout = timePtr(now.Add(m.config.RetryInterval(job.JobType)))
		job.QueueTime = nil
		if err := m.jobs.UpdateJob(ctx, job); err != nil {
			return newFault(fmt.Errorf("schedule retry: %w", err))
		}

	case job.Status == domain.JobStatusAlmostDone:
		job.CheckAgainTimeout = timePtr(now.Add(m.config.RetryInterval(job.JobType)))
		if err := m.jobs.UpdateJob(ctx, job); err != nil {
			return newFault(fmt.Errorf("schedule almost done check: %w", err))
		}

	case job.Status.IsFailure():
		if job.FinishTime == nil {
			job.FinishTime = timePtr(now)
			if err := m.jobs.UpdateJob(ctx, job); err != nil {
				return newFault(fmt.Errorf("save finish time: %w", err))
			}
		}
		if err := m.jobManager.AbortChildJobs(ctx, job); err != nil {
			return newFault(fmt.Errorf("abort child jobs: %w", err))
		}
	}

	if handler, ok := m.handlers[job.JobType]; ok {
		updated, err := handler.Handle(ctx, job, twin)
		if err != nil {
			return newFault(fmt.Errorf("handle %s job in status %s: %w", job.JobType, job.Status, err))
		}
		if updated != nil {
			job = updated
		}
	}

	if !m.config.IgnoreDuplication && job.Status == domain.JobStatusFinished {
		if err := m.finishTwins(ctx, job); err != nil {
			return newFault(err)
		}
	}

	if job.Status == domain.JobStatusRetry && job.ExecutionAttempts >= m.config.MaxExecutionAttempts(job.JobType) {
		m.logger.Info("Job reached max execution attempts",
			slog.String("job_id", job.ID),
			slog.Int("attempts", job.ExecutionAttempts),
		)
		failed, err := m.jobManager.UpdateStatus(ctx, job, domain.JobStatusFailed)
		if err != nil {
			return newFault(fmt.Errorf("fail exhausted job: %w", err))
		}
		job = failed
	}

	if job.IsClosed() && job.EntryID != "" {
		if err := m.deleteMarkedEntry(ctx, job.EntryID); err != nil {
			return newFault(err)
		}
	}

	return nil
}

func (m *Manager) finishTwins(ctx context.Context, job *domain.Job) error {
	twins, err := m.jobs.ListTwinJobs(ctx, job)
	if err != nil {
		return fmt.Errorf("list twin jobs: %w", err)
	}

	for _, twin := range twins {
		if twin.Status == domain.JobStatusFinished {
			continue
		}
		if _, err := m.jobManager.UpdateStatus(ctx, twin, domain.JobStatusFinished); err != nil {
			return fmt.Errorf("finish twin job %s: %w", twin.ID, err)
		}
	}
	return nil
}

func (m *Manager) deleteMarkedEntry(ctx context.Context, entryID string) error {
	entry, err := m.entries.GetEntry(ctx, entryID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load entry %s: %w", entryID, err)
	}
	if !entry.MarkedForDeletion {
		return nil
	}

	m.logger.Info("Deleting entry marked for deletion", slog.String("entry_id", entry.ID))
	if err := m.entries.DeleteEntry(ctx, entry, true); err != nil {
		return fmt.Errorf("delete entry %s: %w", entry.ID, err)
	}
	return nil
}
