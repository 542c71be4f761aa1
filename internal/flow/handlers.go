package flow

import (
	"context"
	"fmt"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// Handler applies the domain consequences of a job's current status and
// returns the job the dispatcher continues with.
type Handler interface {
	Handle(ctx context.Context, job *domain.Job, twin *domain.Job) (*domain.Job, error)
}

// StatusFunc handles a single status of a job whose payload is T.
type StatusFunc[T domain.Payload] func(ctx context.Context, job *domain.Job, data T, twin *domain.Job) (*domain.Job, error)

// statusTable maps the statuses a job type reacts to. Statuses missing from
// the table leave the job unchanged.
type statusTable[T domain.Payload] map[domain.JobStatus]StatusFunc[T]

// failing registers fn for both terminal failure statuses.
func (t statusTable[T]) failing(fn StatusFunc[T]) statusTable[T] {
	t[domain.JobStatusFailed] = fn
	t[domain.JobStatusFatal] = fn
	return t
}

// closing registers fn for success and both failure statuses.
func (t statusTable[T]) closing(fn StatusFunc[T]) statusTable[T] {
	t[domain.JobStatusFinished] = fn
	return t.failing(fn)
}

type statusHandler[T domain.Payload] struct {
	jobType  domain.JobType
	onStatus statusTable[T]
}

func handle[T domain.Payload](jobType domain.JobType, table statusTable[T]) Handler {
	return &statusHandler[T]{jobType: jobType, onStatus: table}
}

func (h *statusHandler[T]) Handle(ctx context.Context, job *domain.Job, twin *domain.Job) (*domain.Job, error) {
	fn, ok := h.onStatus[job.Status]
	if !ok {
		return job, nil
	}

	data, ok := job.Data.(T)
	if !ok {
		return nil, fmt.Errorf("%w: %s job %s carries %T", domain.ErrInvalidPayload, h.jobType, job.ID, job.Data)
	}

	return fn(ctx, job, data, twin)
}

// NewHandlerTable builds the per-type transition table on top of h.
// MAIL and unknown types have no entry and are ignored by the dispatcher.
func NewHandlerTable(h Helper) map[domain.JobType]Handler {
	return map[domain.JobType]Handler{
		domain.JobTypeImport: handle(domain.JobTypeImport, statusTable[*domain.ImportData]{
			domain.JobStatusFinished: h.ImportFinished,
		}.failing(h.ImportFailed)),

		domain.JobTypeIndex: handle(domain.JobTypeIndex, statusTable[*domain.IndexData]{
			domain.JobStatusPending:  h.IndexPending,
			domain.JobStatusFinished: h.IndexFinished,
		}.failing(h.IndexFailed)),

		// Success and failure share one terminal handler.
		domain.JobTypeExtractMedia: handle(domain.JobTypeExtractMedia, statusTable[*domain.ExtractMediaData]{}.
			closing(h.ExtractMediaClosed)),

		domain.JobTypeConvert: handle(domain.JobTypeConvert, statusTable[*domain.ConvertData]{
			domain.JobStatusPending:  h.ConvertPending,
			domain.JobStatusQueued:   h.ConvertQueued,
			domain.JobStatusFinished: h.ConvertFinished,
		}.failing(h.ConvertFailed)),

		domain.JobTypePostConvert: handle(domain.JobTypePostConvert, statusTable[*domain.PostConvertData]{
			domain.JobStatusFinished: h.PostConvertFinished,
		}.failing(h.PostConvertFailed)),

		domain.JobTypeBulkUpload: handle(domain.JobTypeBulkUpload, statusTable[*domain.BulkUploadData]{
			domain.JobStatusFinished: h.BulkUploadFinished,
		}.failing(h.BulkUploadFailed)),

		domain.JobTypeConvertCollection: handle(domain.JobTypeConvertCollection, statusTable[*domain.ConvertCollectionData]{
			domain.JobStatusPending:  h.ConvertCollectionPending,
			domain.JobStatusFinished: h.ConvertCollectionFinished,
		}.failing(h.ConvertCollectionFailed)),

		domain.JobTypeConvertProfile: handle(domain.JobTypeConvertProfile, statusTable[*domain.ConvertProfileData]{
			domain.JobStatusPending:  h.ConvertProfilePending,
			domain.JobStatusFinished: h.ConvertProfileFinished,
		}.failing(h.ConvertProfileFailed)),

		// Bulk download has no failure handler.
		domain.JobTypeBulkDownload: handle(domain.JobTypeBulkDownload, statusTable[*domain.BulkDownloadData]{
			domain.JobStatusPending:  h.BulkDownloadPending,
			domain.JobStatusFinished: h.BulkDownloadFinished,
		}),

		domain.JobTypeProvisionProvide: handle(domain.JobTypeProvisionProvide, statusTable[*domain.ProvisionData]{
			domain.JobStatusFinished: h.ProvisionProvideFinished,
		}.failing(h.ProvisionProvideFailed)),

		domain.JobTypeProvisionDelete: handle(domain.JobTypeProvisionDelete, statusTable[*domain.ProvisionData]{}),

		domain.JobTypeStorageExport: handle(domain.JobTypeStorageExport, statusTable[*domain.StorageExportData]{
			domain.JobStatusFinished: h.StorageExportFinished,
		}.failing(h.StorageExportFailed)),

		domain.JobTypeStorageDelete: handle(domain.JobTypeStorageDelete, statusTable[*domain.StorageDeleteData]{
			domain.JobStatusFinished: h.StorageDeleteFinished,
		}),

		domain.JobTypeCaptureThumb: handle(domain.JobTypeCaptureThumb, statusTable[*domain.CaptureThumbData]{
			domain.JobStatusFinished: h.CaptureThumbFinished,
		}.failing(h.CaptureThumbFailed)),

		domain.JobTypeDeleteFile: handle(domain.JobTypeDeleteFile, statusTable[*domain.DeleteFileData]{
			domain.JobStatusFinished: h.DeleteFileFinished,
		}),

		// Copy, delete and move-category-entries completion handling is not
		// implemented; every status leaves the job unchanged.
		domain.JobTypeCopy:                handle(domain.JobTypeCopy, statusTable[*domain.CopyData]{}),
		domain.JobTypeDelete:              handle(domain.JobTypeDelete, statusTable[*domain.DeleteData]{}),
		domain.JobTypeMoveCategoryEntries: handle(domain.JobTypeMoveCategoryEntries, statusTable[*domain.MoveCategoryEntriesData]{}),
	}
}
