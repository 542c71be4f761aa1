package flow

import (
	"context"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// JobStore persists batch jobs.
type JobStore interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	UpdateJob(ctx context.Context, job *domain.Job) error
	// ListChildJobs returns the jobs whose parent is parentID.
	ListChildJobs(ctx context.Context, parentID string) ([]*domain.Job, error)
	// ListTwinJobs returns the other jobs sharing job's duplication key.
	ListTwinJobs(ctx context.Context, job *domain.Job) ([]*domain.Job, error)
}

// EntryStore reads and updates entries.
type EntryStore interface {
	// GetEntry returns a live entry; deleted entries yield ErrEntryNotFound.
	GetEntry(ctx context.Context, entryID string) (*domain.Entry, error)
	// GetEntryNoFilter returns the entry whatever its status.
	GetEntryNoFilter(ctx context.Context, entryID string) (*domain.Entry, error)
	UpdateEntry(ctx context.Context, entry *domain.Entry) error
	DeleteEntry(ctx context.Context, entry *domain.Entry, force bool) error
}

// AssetStore reads and updates entry assets.
type AssetStore interface {
	GetAsset(ctx context.Context, assetID string) (*domain.Asset, error)
	CreateAsset(ctx context.Context, asset *domain.Asset) error
	UpdateAsset(ctx context.Context, asset *domain.Asset) error
	ListAssetsByEntry(ctx context.Context, entryID string) ([]*domain.Asset, error)
}

// FileSyncLocator resolves sync keys to the files behind them.
type FileSyncLocator interface {
	// Exists reports whether any non-deleted file sync exists for key.
	Exists(ctx context.Context, key domain.SyncKey) (bool, error)
	// ReadyFileSync returns the first ready copy for key, local or remote.
	ReadyFileSync(ctx context.Context, key domain.SyncKey) (*domain.FileSync, error)
	// LocalFileSync returns the ready local copy for key, or nil when none exists.
	LocalFileSync(ctx context.Context, key domain.SyncKey) (*domain.FileSync, error)
	// LocalPath returns the path of the ready local copy, or "" when none exists.
	LocalPath(ctx context.Context, key domain.SyncKey) (string, error)
	// RemoteAssetID returns the remote asset id of a ready remote copy, or "".
	RemoteAssetID(ctx context.Context, key domain.SyncKey) (string, error)
	GetFileSync(ctx context.Context, fileSyncID string) (*domain.FileSync, error)
	CreateFileSync(ctx context.Context, fs *domain.FileSync) error
	UpdateFileSync(ctx context.Context, fs *domain.FileSync) error
}

// PartnerStore reads partner accounts.
type PartnerStore interface {
	GetPartner(ctx context.Context, partnerID int64) (*domain.Partner, error)
}

// JobManager is the job-creation API.
type JobManager interface {
	// AddJob persists job as a new pending job and announces it for execution.
	AddJob(ctx context.Context, job *domain.Job) (*domain.Job, error)
	// UpdateStatus moves job to status, persists it and announces the change.
	UpdateStatus(ctx context.Context, job *domain.Job, status domain.JobStatus) (*domain.Job, error)
	// AbortChildJobs moves every non-closed child of job to ABORTED.
	AbortChildJobs(ctx context.Context, job *domain.Job) error
	AddMailJob(ctx context.Context, parent *domain.Job, partnerID int64, data *domain.MailData) (*domain.Job, error)
	AddConvertProfileJob(ctx context.Context, parent *domain.Job, entry *domain.Entry, flavorAssetID, localPath, remoteAssetID string) (*domain.Job, error)
	AddPostConvertJob(ctx context.Context, parent *domain.Job, entry *domain.Entry, data *domain.PostConvertData) (*domain.Job, error)
	AddIndexJob(ctx context.Context, partnerID int64, objectType domain.IndexObjectType, filter domain.ObjectFilter, shouldUpdate bool) (*domain.Job, error)
	AddCaptureThumbJob(ctx context.Context, parent *domain.Job, entry *domain.Entry, data *domain.CaptureThumbData) (*domain.Job, error)
}
