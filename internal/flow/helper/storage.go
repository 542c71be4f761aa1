package helper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// StorageExportFinished records the exported copy as ready.
func (h *Helper) StorageExportFinished(ctx context.Context, job *domain.Job, data *domain.StorageExportData, _ *domain.Job) (*domain.Job, error) {
	return job, h.recordExport(ctx, job, data, domain.FileSyncStatusReady)
}

// StorageExportFailed records the export attempt as failed.
func (h *Helper) StorageExportFailed(ctx context.Context, job *domain.Job, data *domain.StorageExportData, _ *domain.Job) (*domain.Job, error) {
	return job, h.recordExport(ctx, job, data, domain.FileSyncStatusError)
}

func (h *Helper) recordExport(ctx context.Context, job *domain.Job, data *domain.StorageExportData, status domain.FileSyncStatus) error {
	src, err := h.fileSyncs.GetFileSync(ctx, data.SrcFileSyncID)
	if errors.Is(err, domain.ErrFileSyncNotFound) {
		h.logger.Warn("Exported file sync not found",
			slog.String("job_id", job.ID),
			slog.String("file_sync_id", data.SrcFileSyncID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load exported file sync %s: %w", data.SrcFileSyncID, err)
	}

	now := h.now()
	exported := &domain.FileSync{
		ID:               uuid.New().String(),
		Key:              src.Key,
		FileType:         domain.FileSyncTypeURL,
		Status:           status,
		FilePath:         data.DestFileSyncStoredPath,
		External:         true,
		StorageProfileID: data.StorageProfileID,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.fileSyncs.CreateFileSync(ctx, exported); err != nil {
		return fmt.Errorf("record export of %s: %w", src.Key, err)
	}
	return nil
}

// StorageDeleteFinished marks the remote copy deleted.
func (h *Helper) StorageDeleteFinished(ctx context.Context, job *domain.Job, data *domain.StorageDeleteData, _ *domain.Job) (*domain.Job, error) {
	return job, h.setFileSyncStatus(ctx, data.SrcFileSyncID, domain.FileSyncStatusDeleted)
}

// DeleteFileFinished marks the removed local copy purged.
func (h *Helper) DeleteFileFinished(ctx context.Context, job *domain.Job, data *domain.DeleteFileData, _ *domain.Job) (*domain.Job, error) {
	return job, h.setFileSyncStatus(ctx, data.FileSyncID, domain.FileSyncStatusPurged)
}

// CaptureThumbFinished records the captured image and marks the thumbnail ready.
func (h *Helper) CaptureThumbFinished(ctx context.Context, job *domain.Job, data *domain.CaptureThumbData, _ *domain.Job) (*domain.Job, error) {
	asset, err := h.setAssetStatus(ctx, data.ThumbAssetID, domain.AssetStatusReady)
	if asset == nil || err != nil {
		return job, err
	}

	if data.ThumbPath != "" {
		if _, err := h.storeFile(ctx, asset.SyncKey(domain.FileSyncSubTypeAsset), domain.FileSyncTypeFile, data.ThumbPath, ""); err != nil {
			return nil, err
		}
	}
	return job, nil
}

func (h *Helper) CaptureThumbFailed(ctx context.Context, job *domain.Job, data *domain.CaptureThumbData, _ *domain.Job) (*domain.Job, error) {
	if _, err := h.setAssetStatus(ctx, data.ThumbAssetID, domain.AssetStatusError); err != nil {
		return nil, err
	}
	return job, nil
}

// GenerateThumbnailsFromFlavor starts a capture job for every thumbnail of
// the entry waiting on the flavor built with flavorParamsID.
func (h *Helper) GenerateThumbnailsFromFlavor(ctx context.Context, entryID string, raisedJob *domain.Job, flavorParamsID int) error {
	entry, err := h.loadEntry(ctx, entryID)
	if entry == nil || err != nil {
		return err
	}

	assets, err := h.assets.ListAssetsByEntry(ctx, entryID)
	if err != nil {
		return fmt.Errorf("list assets of entry %s: %w", entryID, err)
	}

	var source *domain.Asset
	for _, a := range assets {
		if a.IsFlavor() && a.FlavorParamsID == flavorParamsID && a.Status == domain.AssetStatusReady {
			source = a
			break
		}
	}
	if source == nil {
		h.logger.Debug("No ready source flavor for thumbnails",
			slog.String("entry_id", entryID),
			slog.Int("flavor_params_id", flavorParamsID),
		)
		return nil
	}

	key := source.SyncKey(domain.FileSyncSubTypeAsset)
	localPath, err := h.fileSyncs.LocalPath(ctx, key)
	if err != nil {
		return fmt.Errorf("resolve local path %s: %w", key, err)
	}
	remoteAssetID, err := h.fileSyncs.RemoteAssetID(ctx, key)
	if err != nil {
		return fmt.Errorf("resolve remote asset id %s: %w", key, err)
	}

	for _, a := range assets {
		if !a.IsThumbnail() || a.FlavorParamsID != flavorParamsID || a.Status != domain.AssetStatusWaitForConvert {
			continue
		}

		data := &domain.CaptureThumbData{
			ThumbAssetID:         a.ID,
			ThumbParamsOutputID:  flavorParamsID,
			SrcFileSyncLocalPath: localPath,
			SrcFileSyncRemoteID:  remoteAssetID,
		}
		if _, err := h.jobManager.AddCaptureThumbJob(ctx, raisedJob, entry, data); err != nil {
			return fmt.Errorf("add capture thumb job for asset %s: %w", a.ID, err)
		}
	}
	return nil
}
