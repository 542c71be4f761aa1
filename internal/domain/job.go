package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the kind of work a batch job performs.
type JobType string

// Job types handled by the flow manager. MAIL jobs are created by the flow
// but never routed back through it.
const (
	JobTypeImport              JobType = "IMPORT"
	JobTypeExtractMedia        JobType = "EXTRACT_MEDIA"
	JobTypeConvert             JobType = "CONVERT"
	JobTypePostConvert         JobType = "POSTCONVERT"
	JobTypeBulkUpload          JobType = "BULKUPLOAD"
	JobTypeConvertProfile      JobType = "CONVERT_PROFILE"
	JobTypeBulkDownload        JobType = "BULKDOWNLOAD"
	JobTypeProvisionProvide    JobType = "PROVISION_PROVIDE"
	JobTypeProvisionDelete     JobType = "PROVISION_DELETE"
	JobTypeConvertCollection   JobType = "CONVERT_COLLECTION"
	JobTypeStorageExport       JobType = "STORAGE_EXPORT"
	JobTypeStorageDelete       JobType = "STORAGE_DELETE"
	JobTypeCaptureThumb        JobType = "CAPTURE_THUMB"
	JobTypeDeleteFile          JobType = "DELETE_FILE"
	JobTypeIndex               JobType = "INDEX"
	JobTypeCopy                JobType = "COPY"
	JobTypeDelete              JobType = "DELETE"
	JobTypeMoveCategoryEntries JobType = "MOVE_CATEGORY_ENTRIES"
	JobTypeMail                JobType = "MAIL"
)

// JobStatus is the lifecycle status reported for a batch job.
type JobStatus string

// Job status constants
const (
	JobStatusPending     JobStatus = "PENDING"
	JobStatusQueued      JobStatus = "QUEUED"
	JobStatusProcessing  JobStatus = "PROCESSING"
	JobStatusProcessed   JobStatus = "PROCESSED"
	JobStatusMoveFile    JobStatus = "MOVEFILE"
	JobStatusFinished    JobStatus = "FINISHED"
	JobStatusFailed      JobStatus = "FAILED"
	JobStatusAborted     JobStatus = "ABORTED"
	JobStatusAlmostDone  JobStatus = "ALMOST_DONE"
	JobStatusRetry       JobStatus = "RETRY"
	JobStatusFatal       JobStatus = "FATAL"
	JobStatusDontProcess JobStatus = "DONT_PROCESS"
)

var allStatuses = []JobStatus{
	JobStatusPending,
	JobStatusQueued,
	JobStatusProcessing,
	JobStatusProcessed,
	JobStatusMoveFile,
	JobStatusFinished,
	JobStatusFailed,
	JobStatusAborted,
	JobStatusAlmostDone,
	JobStatusRetry,
	JobStatusFatal,
	JobStatusDontProcess,
}

var closedStatuses = []JobStatus{
	JobStatusFinished,
	JobStatusFailed,
	JobStatusAborted,
	JobStatusFatal,
	JobStatusDontProcess,
}

// ClosedStatuses returns the statuses after which a job is never dispatched again.
func ClosedStatuses() []JobStatus {
	return slices.Clone(closedStatuses)
}

// Valid reports whether s is a known status.
func (s JobStatus) Valid() bool {
	return slices.Contains(allStatuses, s)
}

// IsClosed reports whether s is one of the closed statuses.
func (s JobStatus) IsClosed() bool {
	return slices.Contains(closedStatuses, s)
}

// IsFailure reports whether s is a terminal failure status.
func (s JobStatus) IsFailure() bool {
	return s == JobStatusFailed || s == JobStatusFatal
}

// Job is a batch job record together with its decoded payload.
type Job struct {
	ID                string     `json:"job_id"`
	JobType           JobType    `json:"job_type"`
	JobSubType        int        `json:"job_sub_type"`
	Status            JobStatus  `json:"status"`
	Message           string     `json:"message,omitempty"`
	PartnerID         int64      `json:"partner_id"`
	EntryID           string     `json:"entry_id,omitempty"`
	ParentJobID       string     `json:"parent_job_id,omitempty"`
	DuplicationKey    string     `json:"duplication_key,omitempty"`
	Priority          int        `json:"priority"`
	ExecutionAttempts int        `json:"execution_attempts"`
	CheckAgainTimeout *time.Time `json:"check_again_timeout,omitempty"`
	QueueTime         *time.Time `json:"queue_time,omitempty"`
	FinishTime        *time.Time `json:"finish_time,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	Data              Payload    `json:"-"`
}

// ObjectType implements Object so status changes of jobs can flow through
// the entity event consumers.
func (j *Job) ObjectType() ObjectType { return ObjectTypeJob }

// IsClosed reports whether the job reached a closed status.
func (j *Job) IsClosed() bool { return j.Status.IsClosed() }

// NewChild returns a pending job spawned by j. It inherits the partner and entry.
func (j *Job) NewChild(jobType JobType, data Payload) *Job {
	child := NewJob(jobType, data)
	child.PartnerID = j.PartnerID
	child.EntryID = j.EntryID
	child.ParentJobID = j.ID
	return child
}

// NewJob returns a pending job with a fresh id.
func NewJob(jobType JobType, data Payload) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        uuid.New().String(),
		JobType:   jobType,
		Status:    JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
		Data:      data,
	}
}

// Clone returns a shallow copy of the job with its own timestamp pointers.
// The payload is shared.
func (j *Job) Clone() *Job {
	cp := *j
	cp.CheckAgainTimeout = cloneTime(j.CheckAgainTimeout)
	cp.QueueTime = cloneTime(j.QueueTime)
	cp.FinishTime = cloneTime(j.FinishTime)
	return &cp
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
