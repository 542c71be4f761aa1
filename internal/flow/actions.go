package flow

import (
	"context"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// Helper performs the domain consequences of job transitions and entity
// events. The handler table and the event consumers only decide which action
// runs; the helper decides what the action does to entries, assets, file
// syncs and follow-up jobs.
type Helper interface {
	ImportFinished(ctx context.Context, job *domain.Job, data *domain.ImportData, twin *domain.Job) (*domain.Job, error)
	ImportFailed(ctx context.Context, job *domain.Job, data *domain.ImportData, twin *domain.Job) (*domain.Job, error)

	IndexPending(ctx context.Context, job *domain.Job, data *domain.IndexData, twin *domain.Job) (*domain.Job, error)
	IndexFinished(ctx context.Context, job *domain.Job, data *domain.IndexData, twin *domain.Job) (*domain.Job, error)
	IndexFailed(ctx context.Context, job *domain.Job, data *domain.IndexData, twin *domain.Job) (*domain.Job, error)

	ExtractMediaClosed(ctx context.Context, job *domain.Job, data *domain.ExtractMediaData, twin *domain.Job) (*domain.Job, error)

	ConvertPending(ctx context.Context, job *domain.Job, data *domain.ConvertData, twin *domain.Job) (*domain.Job, error)
	ConvertQueued(ctx context.Context, job *domain.Job, data *domain.ConvertData, twin *domain.Job) (*domain.Job, error)
	ConvertFinished(ctx context.Context, job *domain.Job, data *domain.ConvertData, twin *domain.Job) (*domain.Job, error)
	ConvertFailed(ctx context.Context, job *domain.Job, data *domain.ConvertData, twin *domain.Job) (*domain.Job, error)

	PostConvertFinished(ctx context.Context, job *domain.Job, data *domain.PostConvertData, twin *domain.Job) (*domain.Job, error)
	PostConvertFailed(ctx context.Context, job *domain.Job, data *domain.PostConvertData, twin *domain.Job) (*domain.Job, error)

	BulkUploadFinished(ctx context.Context, job *domain.Job, data *domain.BulkUploadData, twin *domain.Job) (*domain.Job, error)
	BulkUploadFailed(ctx context.Context, job *domain.Job, data *domain.BulkUploadData, twin *domain.Job) (*domain.Job, error)

	ConvertCollectionPending(ctx context.Context, job *domain.Job, data *domain.ConvertCollectionData, twin *domain.Job) (*domain.Job, error)
	ConvertCollectionFinished(ctx context.Context, job *domain.Job, data *domain.ConvertCollectionData, twin *domain.Job) (*domain.Job, error)
	ConvertCollectionFailed(ctx context.Context, job *domain.Job, data *domain.ConvertCollectionData, twin *domain.Job) (*domain.Job, error)

	ConvertProfilePending(ctx context.Context, job *domain.Job, data *domain.ConvertProfileData, twin *domain.Job) (*domain.Job, error)
	ConvertProfileFinished(ctx context.Context, job *domain.Job, data *domain.ConvertProfileData, twin *domain.Job) (*domain.Job, error)
	ConvertProfileFailed(ctx context.Context, job *domain.Job, data *domain.ConvertProfileData, twin *domain.Job) (*domain.Job, error)

	BulkDownloadPending(ctx context.Context, job *domain.Job, data *domain.BulkDownloadData, twin *domain.Job) (*domain.Job, error)
	BulkDownloadFinished(ctx context.Context, job *domain.Job, data *domain.BulkDownloadData, twin *domain.Job) (*domain.Job, error)

	ProvisionProvideFinished(ctx context.Context, job *domain.Job, data *domain.ProvisionData, twin *domain.Job) (*domain.Job, error)
	ProvisionProvideFailed(ctx context.Context, job *domain.Job, data *domain.ProvisionData, twin *domain.Job) (*domain.Job, error)

	StorageExportFinished(ctx context.Context, job *domain.Job, data *domain.StorageExportData, twin *domain.Job) (*domain.Job, error)
	StorageExportFailed(ctx context.Context, job *domain.Job, data *domain.StorageExportData, twin *domain.Job) (*domain.Job, error)
	StorageDeleteFinished(ctx context.Context, job *domain.Job, data *domain.StorageDeleteData, twin *domain.Job) (*domain.Job, error)

	CaptureThumbFinished(ctx context.Context, job *domain.Job, data *domain.CaptureThumbData, twin *domain.Job) (*domain.Job, error)
	CaptureThumbFailed(ctx context.Context, job *domain.Job, data *domain.CaptureThumbData, twin *domain.Job) (*domain.Job, error)

	DeleteFileFinished(ctx context.Context, job *domain.Job, data *domain.DeleteFileData, twin *domain.Job) (*domain.Job, error)

	// HandleEntryReplacement completes the replacement of the entry that
	// entry (a temporary replacement that just became ready) stands in for.
	HandleEntryReplacement(ctx context.Context, entry *domain.Entry) error
	// ReplaceEntry moves replacement's content onto target.
	ReplaceEntry(ctx context.Context, target, replacement *domain.Entry) error
	UploadFinished(ctx context.Context, token *domain.UploadToken) error
	UploadCanceled(ctx context.Context, token *domain.UploadToken) error
	SendBulkUploadNotificationEmail(ctx context.Context, job *domain.Job, mailType domain.MailType, bodyParams []string) error
	BulkUploadLogURL(job *domain.Job) string
	GenerateThumbnailsFromFlavor(ctx context.Context, entryID string, raisedJob *domain.Job, flavorParamsID int) error
}
