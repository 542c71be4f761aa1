package postgres

import (
	"fmt"
	"time"

	"github.com/cuongbtq/batchflow/internal/domain"
)

type jobRow struct {
	JobID             string     `db:"job_id"`
	JobType           string     `db:"job_type"`
	JobSubType        int        `db:"job_sub_type"`
	Status            string     `db:"status"`
	Message           string     `db:"message"`
	PartnerID         int64      `db:"partner_id"`
	EntryID           string     `db:"entry_id"`
	ParentJobID       string     `db:"parent_job_id"`
	DuplicationKey    string     `db:"duplication_key"`
	Priority          int        `db:"priority"`
	ExecutionAttempts int        `db:"execution_attempts"`
	CheckAgainTimeout *time.Time `db:"check_again_timeout"`
	QueueTime         *time.Time `db:"queue_time"`
	FinishTime        *time.Time `db:"finish_time"`
	Data              []byte     `db:"data"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

const jobColumns = `
	job_id, job_type, job_sub_type, status, message, partner_id, entry_id,
	parent_job_id, duplication_key, priority, execution_attempts,
	check_again_timeout, queue_time, finish_time, data, created_at, updated_at`

func toJobRow(job *domain.Job) (*jobRow, error) {
	data, err := domain.EncodePayload(job.Data)
	if err != nil {
		return nil, err
	}
	return &jobRow{
		JobID:             job.ID,
		JobType:           string(job.JobType),
		JobSubType:        job.JobSubType,
		Status:            string(job.Status),
		Message:           job.Message,
		PartnerID:         job.PartnerID,
		EntryID:           job.EntryID,
		ParentJobID:       job.ParentJobID,
		DuplicationKey:    job.DuplicationKey,
		Priority:          job.Priority,
		ExecutionAttempts: job.ExecutionAttempts,
		CheckAgainTimeout: job.CheckAgainTimeout,
		QueueTime:         job.QueueTime,
		FinishTime:        job.FinishTime,
		Data:              data,
		CreatedAt:         job.CreatedAt,
		UpdatedAt:         job.UpdatedAt,
	}, nil
}

func (r *jobRow) toDomain() (*domain.Job, error) {
	jobType := domain.JobType(r.JobType)
	data, err := domain.DecodePayload(jobType, r.Data)
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", r.JobID, err)
	}
	return &domain.Job{
		ID:                r.JobID,
		JobType:           jobType,
		JobSubType:        r.JobSubType,
		Status:            domain.JobStatus(r.Status),
		Message:           r.Message,
		PartnerID:         r.PartnerID,
		EntryID:           r.EntryID,
		ParentJobID:       r.ParentJobID,
		DuplicationKey:    r.DuplicationKey,
		Priority:          r.Priority,
		ExecutionAttempts: r.ExecutionAttempts,
		CheckAgainTimeout: r.CheckAgainTimeout,
		QueueTime:         r.QueueTime,
		FinishTime:        r.FinishTime,
		CreatedAt:         r.CreatedAt,
		UpdatedAt:         r.UpdatedAt,
		Data:              data,
	}, nil
}

func jobsFromRows(rows []jobRow) ([]*domain.Job, error) {
	out := make([]*domain.Job, 0, len(rows))
	for i := range rows {
		job, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, nil
}

type fileSyncRow struct {
	FileSyncID       string    `db:"file_sync_id"`
	ObjectType       string    `db:"object_type"`
	ObjectID         string    `db:"object_id"`
	SubType          int       `db:"sub_type"`
	Version          int       `db:"version"`
	FileType         string    `db:"file_type"`
	Status           string    `db:"status"`
	FilePath         string    `db:"file_path"`
	RemoteAssetID    string    `db:"remote_asset_id"`
	External         bool      `db:"external"`
	StorageProfileID int       `db:"storage_profile_id"`
	CreatedAt        time.Time `db:"created_at"`
	UpdatedAt        time.Time `db:"updated_at"`
}

const fileSyncColumns = `
	file_sync_id, object_type, object_id, sub_type, version, file_type, status,
	file_path, remote_asset_id, external, storage_profile_id, created_at, updated_at`

func toFileSyncRow(fs *domain.FileSync) *fileSyncRow {
	return &fileSyncRow{
		FileSyncID:       fs.ID,
		ObjectType:       string(fs.Key.ObjectType),
		ObjectID:         fs.Key.ObjectID,
		SubType:          int(fs.Key.SubType),
		Version:          fs.Key.Version,
		FileType:         string(fs.FileType),
		Status:           string(fs.Status),
		FilePath:         fs.FilePath,
		RemoteAssetID:    fs.RemoteAssetID,
		External:         fs.External,
		StorageProfileID: fs.StorageProfileID,
		CreatedAt:        fs.CreatedAt,
		UpdatedAt:        fs.UpdatedAt,
	}
}

func (r *fileSyncRow) toDomain() *domain.FileSync {
	return &domain.FileSync{
		ID: r.FileSyncID,
		Key: domain.SyncKey{
			ObjectType: domain.ObjectType(r.ObjectType),
			ObjectID:   r.ObjectID,
			SubType:    domain.FileSyncSubType(r.SubType),
			Version:    r.Version,
		},
		FileType:         domain.FileSyncType(r.FileType),
		Status:           domain.FileSyncStatus(r.Status),
		FilePath:         r.FilePath,
		RemoteAssetID:    r.RemoteAssetID,
		External:         r.External,
		StorageProfileID: r.StorageProfileID,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}
