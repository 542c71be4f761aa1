package dto

import (
	"encoding/json"
	"time"

	"github.com/cuongbtq/batchflow/internal/domain"
)

type CreateJobRequest struct {
	JobType        string          `json:"job_type" binding:"required"`
	JobSubType     int             `json:"job_sub_type"`
	PartnerID      int64           `json:"partner_id" binding:"required"`
	EntryID        string          `json:"entry_id"`
	ParentJobID    string          `json:"parent_job_id"`
	DuplicationKey string          `json:"duplication_key"`
	Priority       int             `json:"priority"`
	Data           json.RawMessage `json:"data"`
}

type ListJobsRequest struct {
	PartnerID int64  `form:"partner_id"`
	JobType   string `form:"job_type"`
	Status    string `form:"status"`
	EntryID   string `form:"entry_id"`
	PageSize  int    `form:"page_size"`
	Cursor    string `form:"cursor"`
}

type ListJobsResponse struct {
	Jobs       []JobDTO `json:"jobs"`
	NextCursor string   `json:"next_cursor,omitempty"`
}

type UpdateJobStatusRequest struct {
	Status  string `json:"status" binding:"required"`
	Message string `json:"message"`
}

type JobDTO struct {
	JobID             string          `json:"job_id"`
	JobType           string          `json:"job_type"`
	JobSubType        int             `json:"job_sub_type"`
	Status            string          `json:"status"`
	Message           string          `json:"message,omitempty"`
	PartnerID         int64           `json:"partner_id"`
	EntryID           string          `json:"entry_id,omitempty"`
	ParentJobID       string          `json:"parent_job_id,omitempty"`
	DuplicationKey    string          `json:"duplication_key,omitempty"`
	Priority          int             `json:"priority"`
	ExecutionAttempts int             `json:"execution_attempts"`
	CheckAgainTimeout string          `json:"check_again_timeout,omitempty"`
	QueueTime         string          `json:"queue_time,omitempty"`
	FinishTime        string          `json:"finish_time,omitempty"`
	Data              json.RawMessage `json:"data"`
	CreatedAt         string          `json:"created_at"`
	UpdatedAt         string          `json:"updated_at"`
}

type JobLogResponse struct {
	JobID           string `json:"job_id"`
	Status          string `json:"status"`
	Message         string `json:"message"`
	NumOfObjects    int    `json:"num_of_objects,omitempty"`
	NumOfErrors     int    `json:"num_of_errors,omitempty"`
	ResultsFilePath string `json:"results_file_path,omitempty"`
}

type PublishEventRequest struct {
	Kind            string            `json:"kind" binding:"required"`
	ObjectType      string            `json:"object_type" binding:"required"`
	Object          json.RawMessage   `json:"object" binding:"required"`
	ModifiedColumns []string          `json:"modified_columns"`
	OldValues       map[string]string `json:"old_values"`
	RaisedJobID     string            `json:"raised_job_id"`
}

// NewJobDTO renders a job for API responses.
func NewJobDTO(job *domain.Job) (JobDTO, error) {
	data, err := domain.EncodePayload(job.Data)
	if err != nil {
		return JobDTO{}, err
	}
	return JobDTO{
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
		CheckAgainTimeout: formatTime(job.CheckAgainTimeout),
		QueueTime:         formatTime(job.QueueTime),
		FinishTime:        formatTime(job.FinishTime),
		Data:              data,
		CreatedAt:         job.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         job.UpdatedAt.Format(time.RFC3339),
	}, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
