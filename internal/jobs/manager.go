// Package jobs creates batch jobs and moves them between statuses. Every
// persisted change is announced on the broker so the flow manager sees it.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/flow"
	"github.com/cuongbtq/batchflow/internal/message"
)

// Store persists jobs.
type Store interface {
	CreateJob(ctx context.Context, job *domain.Job) error
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	UpdateJob(ctx context.Context, job *domain.Job) error
	ListChildJobs(ctx context.Context, parentID string) ([]*domain.Job, error)
}

// Publisher delivers encoded flow messages.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// Manager is the job-creation API.
type Manager struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

var _ flow.JobManager = (*Manager)(nil)

// NewManager creates a job manager.
func NewManager(store Store, publisher Publisher, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		store:     store,
		publisher: publisher,
		logger:    logger.With(slog.String("component", "jobs")),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// AddJob persists job as a new job and announces it.
func (m *Manager) AddJob(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if job.ID == "" {
		job.ID = uuid.New().String()
	}
	if job.Status == "" {
		job.Status = domain.JobStatusPending
	}
	now := m.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now

	if err := m.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create %s job: %w", job.JobType, err)
	}

	m.logger.Info("Job added",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.JobType)),
		slog.String("parent_job_id", job.ParentJobID),
	)

	if err := m.announce(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateStatus moves job to status, persists and announces it.
func (m *Manager) UpdateStatus(ctx context.Context, job *domain.Job, status domain.JobStatus) (*domain.Job, error) {
	previous := job.Status
	job.Status = status
	job.UpdatedAt = m.now()

	if err := m.store.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update job %s to %s: %w", job.ID, status, err)
	}

	m.logger.Info("Job status updated",
		slog.String("job_id", job.ID),
		slog.String("from", string(previous)),
		slog.String("to", string(status)),
	)

	if err := m.announce(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// AbortChildJobs aborts every child of job that has not closed yet.
func (m *Manager) AbortChildJobs(ctx context.Context, job *domain.Job) error {
	children, err := m.store.ListChildJobs(ctx, job.ID)
	if err != nil {
		return fmt.Errorf("list children of job %s: %w", job.ID, err)
	}

	for _, child := range children {
		if child.IsClosed() {
			continue
		}
		if _, err := m.UpdateStatus(ctx, child, domain.JobStatusAborted); err != nil {
			return fmt.Errorf("abort child job %s: %w", child.ID, err)
		}
	}
	return nil
}

// AddMailJob enqueues a mail job, as a child of parent when one is given.
func (m *Manager) AddMailJob(ctx context.Context, parent *domain.Job, partnerID int64, data *domain.MailData) (*domain.Job, error) {
	job := newJob(parent, domain.JobTypeMail, data)
	job.PartnerID = partnerID
	job.JobSubType = int(data.MailType)
	job.Priority = int(data.Priority)
	return m.AddJob(ctx, job)
}

// AddConvertProfileJob starts the conversion of an entry from its original flavor.
func (m *Manager) AddConvertProfileJob(ctx context.Context, parent *domain.Job, entry *domain.Entry, flavorAssetID, localPath, remoteAssetID string) (*domain.Job, error) {
	data := &domain.ConvertProfileData{
		FlavorAssetID:          flavorAssetID,
		InputFileSyncLocalPath: localPath,
		InputFileSyncRemoteID:  remoteAssetID,
		ThumbOffset:            entry.ThumbOffset,
	}
	job := newEntryJob(parent, entry, domain.JobTypeConvertProfile, data)
	return m.AddJob(ctx, job)
}

// AddPostConvertJob validates a converted flavor.
func (m *Manager) AddPostConvertJob(ctx context.Context, parent *domain.Job, entry *domain.Entry, data *domain.PostConvertData) (*domain.Job, error) {
	job := newEntryJob(parent, entry, domain.JobTypePostConvert, data)
	job.JobSubType = int(data.AssetType)
	return m.AddJob(ctx, job)
}

// AddCaptureThumbJob captures a thumbnail from a flavor.
func (m *Manager) AddCaptureThumbJob(ctx context.Context, parent *domain.Job, entry *domain.Entry, data *domain.CaptureThumbData) (*domain.Job, error) {
	job := newEntryJob(parent, entry, domain.JobTypeCaptureThumb, data)
	return m.AddJob(ctx, job)
}

// AddIndexJob re-indexes the objects of a partner matching filter.
func (m *Manager) AddIndexJob(ctx context.Context, partnerID int64, objectType domain.IndexObjectType, filter domain.ObjectFilter, shouldUpdate bool) (*domain.Job, error) {
	job := domain.NewJob(domain.JobTypeIndex, &domain.IndexData{
		ObjectType:   objectType,
		Filter:       filter,
		ShouldUpdate: shouldUpdate,
	})
	job.PartnerID = partnerID
	return m.AddJob(ctx, job)
}

func (m *Manager) announce(ctx context.Context, job *domain.Job) error {
	body, err := message.JobUpdated(job.ID, "").Encode()
	if err != nil {
		return err
	}
	if err := m.publisher.PublishWithRetry(ctx, body, message.ContentType); err != nil {
		return fmt.Errorf("announce job %s: %w", job.ID, err)
	}
	return nil
}

func newJob(parent *domain.Job, jobType domain.JobType, data domain.Payload) *domain.Job {
	if parent != nil {
		return parent.NewChild(jobType, data)
	}
	return domain.NewJob(jobType, data)
}

func newEntryJob(parent *domain.Job, entry *domain.Entry, jobType domain.JobType, data domain.Payload) *domain.Job {
	job := newJob(parent, jobType, data)
	job.PartnerID = entry.PartnerID
	job.EntryID = entry.ID
	return job
}
