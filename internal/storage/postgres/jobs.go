package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/storage"
)

func (s *Store) CreateJob(ctx context.Context, job *domain.Job) error {
	row, err := toJobRow(job)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO jobs (` + jobColumns + `
		) VALUES (
			:job_id, :job_type, :job_sub_type, :status, :message, :partner_id, :entry_id,
			:parent_job_id, :duplication_key, :priority, :execution_attempts,
			:check_again_timeout, :queue_time, :finish_time, :data, :created_at, :updated_at
		)
	`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return mapInsertError(err, "job "+job.ID)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, jobID string) (*domain.Job, error) {
	var row jobRow
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE job_id = $1`

	if err := s.db.GetContext(ctx, &row, query, jobID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return row.toDomain()
}

func (s *Store) UpdateJob(ctx context.Context, job *domain.Job) error {
	row, err := toJobRow(job)
	if err != nil {
		return err
	}

	query := `
		UPDATE jobs
		SET job_sub_type = :job_sub_type,
		    status = :status,
		    message = :message,
		    entry_id = :entry_id,
		    duplication_key = :duplication_key,
		    priority = :priority,
		    execution_attempts = :execution_attempts,
		    check_again_timeout = :check_again_timeout,
		    queue_time = :queue_time,
		    finish_time = :finish_time,
		    data = :data,
		    updated_at = NOW()
		WHERE job_id = :job_id
	`
	result, err := s.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("failed to update job: %w", err)
	}
	return expectRow(result, domain.ErrJobNotFound)
}

func (s *Store) ListChildJobs(ctx context.Context, parentID string) ([]*domain.Job, error) {
	return s.selectJobs(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE parent_job_id = $1
		ORDER BY created_at, job_id
	`, parentID)
}

func (s *Store) ListTwinJobs(ctx context.Context, job *domain.Job) ([]*domain.Job, error) {
	if job.DuplicationKey == "" {
		return nil, nil
	}
	return s.selectJobs(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE job_type = $1 AND duplication_key = $2 AND job_id <> $3
		ORDER BY created_at, job_id
	`, job.JobType, job.DuplicationKey, job.ID)
}

// ListDueJobs returns jobs in one of statuses whose check-again timeout is
// at or before dueBy, earliest timeout first.
func (s *Store) ListDueJobs(ctx context.Context, statuses []domain.JobStatus, dueBy time.Time, limit int) ([]*domain.Job, error) {
	names := make([]string, len(statuses))
	for i, st := range statuses {
		names[i] = string(st)
	}
	return s.selectJobs(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE status = ANY($1) AND check_again_timeout <= $2
		ORDER BY check_again_timeout, job_id
		LIMIT $3
	`, pq.Array(names), dueBy, limit)
}

// ListJobs returns one page of jobs plus one extra when more exist.
func (s *Store) ListJobs(ctx context.Context, filter storage.JobFilter) ([]*domain.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE 1=1`
	args := []interface{}{}
	argIdx := 1

	if filter.PartnerID != 0 {
		query += fmt.Sprintf(" AND partner_id = $%d", argIdx)
		args = append(args, filter.PartnerID)
		argIdx++
	}

	if filter.JobType != "" {
		query += fmt.Sprintf(" AND job_type = $%d", argIdx)
		args = append(args, filter.JobType)
		argIdx++
	}

	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	if filter.EntryID != "" {
		query += fmt.Sprintf(" AND entry_id = $%d", argIdx)
		args = append(args, filter.EntryID)
		argIdx++
	}

	if filter.Cursor != nil {
		query += fmt.Sprintf(" AND (created_at, job_id) < ($%d, $%d)", argIdx, argIdx+1)
		args = append(args, filter.Cursor.CreatedAt, filter.Cursor.JobID)
		argIdx += 2
	}

	// Newest first; one extra row tells the caller whether another page exists
	query += " ORDER BY created_at DESC, job_id DESC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, filter.PageSize+1)

	return s.selectJobs(ctx, query, args...)
}

func (s *Store) selectJobs(ctx context.Context, query string, args ...interface{}) ([]*domain.Job, error) {
	var rows []jobRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobsFromRows(rows)
}

func expectRow(result sql.Result, notFound error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}
