package helper

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// ImportFinished records the imported file and starts conversion of an
// original flavor. Other assets become ready.
func (h *Helper) ImportFinished(ctx context.Context, job *domain.Job, data *domain.ImportData, _ *domain.Job) (*domain.Job, error) {
	asset, err := h.assets.GetAsset(ctx, data.FlavorAssetID)
	if errors.Is(err, domain.ErrAssetNotFound) {
		h.logger.Warn("Imported asset not found",
			slog.String("job_id", job.ID),
			slog.String("asset_id", data.FlavorAssetID),
		)
		return job, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load imported asset %s: %w", data.FlavorAssetID, err)
	}

	if _, err := h.storeFile(ctx, asset.SyncKey(domain.FileSyncSubTypeAsset), domain.FileSyncTypeFile, data.DestFileLocalPath, ""); err != nil {
		return nil, err
	}

	if data.FileSize > 0 {
		asset.Size = data.FileSize
	}

	if asset.IsFlavor() && asset.IsOriginal {
		if err := h.assets.UpdateAsset(ctx, asset); err != nil {
			return nil, fmt.Errorf("update imported asset %s: %w", asset.ID, err)
		}

		entry, err := h.loadEntry(ctx, asset.EntryID)
		if entry == nil || err != nil {
			return job, err
		}
		if _, err := h.jobManager.AddConvertProfileJob(ctx, job, entry, asset.ID, data.DestFileLocalPath, ""); err != nil {
			return nil, fmt.Errorf("start conversion of asset %s: %w", asset.ID, err)
		}
		return job, nil
	}

	asset.Status = domain.AssetStatusReady
	if err := h.assets.UpdateAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("mark imported asset %s ready: %w", asset.ID, err)
	}
	return job, nil
}

// ImportFailed removes the partially imported file and marks the asset and
// its entry as failed.
func (h *Helper) ImportFailed(ctx context.Context, job *domain.Job, data *domain.ImportData, _ *domain.Job) (*domain.Job, error) {
	removeFile(h.logger, data.DestFileLocalPath)

	if _, err := h.setAssetStatus(ctx, data.FlavorAssetID, domain.AssetStatusError); err != nil {
		return nil, err
	}
	if _, err := h.setEntryStatus(ctx, job.EntryID, domain.EntryStatusErrorImporting); err != nil {
		return nil, err
	}
	return job, nil
}

// ExtractMediaClosed continues with conversion when media info was extracted
// and fails the flavor otherwise.
func (h *Helper) ExtractMediaClosed(ctx context.Context, job *domain.Job, data *domain.ExtractMediaData, _ *domain.Job) (*domain.Job, error) {
	if job.Status != domain.JobStatusFinished {
		if _, err := h.setAssetStatus(ctx, data.FlavorAssetID, domain.AssetStatusError); err != nil {
			return nil, err
		}
		return job, nil
	}

	entry, err := h.loadEntry(ctx, job.EntryID)
	if entry == nil || err != nil {
		return job, err
	}
	if _, err := h.jobManager.AddConvertProfileJob(ctx, job, entry, data.FlavorAssetID, data.SrcFileSyncLocalPath, data.SrcFileSyncRemoteID); err != nil {
		return nil, fmt.Errorf("start conversion of asset %s: %w", data.FlavorAssetID, err)
	}
	return job, nil
}

// ConvertPending marks the target flavor as converting.
func (h *Helper) ConvertPending(ctx context.Context, job *domain.Job, data *domain.ConvertData, _ *domain.Job) (*domain.Job, error) {
	if _, err := h.setAssetStatus(ctx, data.FlavorAssetID, domain.AssetStatusConverting); err != nil {
		return nil, err
	}
	return job, nil
}

// ConvertQueued marks the target flavor as converting and records the engine.
func (h *Helper) ConvertQueued(ctx context.Context, job *domain.Job, data *domain.ConvertData, _ *domain.Job) (*domain.Job, error) {
	if _, err := h.setAssetStatus(ctx, data.FlavorAssetID, domain.AssetStatusConverting); err != nil {
		return nil, err
	}
	if data.EngineType == "" {
		return job, nil
	}
	return h.stampMessage(ctx, job, fmt.Sprintf("Queued on engine %s", data.EngineType))
}

// ConvertFinished records the converted file and sends the flavor to validation.
func (h *Helper) ConvertFinished(ctx context.Context, job *domain.Job, data *domain.ConvertData, _ *domain.Job) (*domain.Job, error) {
	asset, err := h.setAssetStatus(ctx, data.FlavorAssetID, domain.AssetStatusValidating)
	if asset == nil || err != nil {
		return job, err
	}

	if _, err := h.storeFile(ctx, asset.SyncKey(domain.FileSyncSubTypeAsset), domain.FileSyncTypeFile, data.DestFileSyncLocalPath, data.DestFileSyncRemoteID); err != nil {
		return nil, err
	}
	if data.LogFileSyncLocalPath != "" {
		if _, err := h.storeFile(ctx, asset.SyncKey(domain.FileSyncSubTypeLog), domain.FileSyncTypeFile, data.LogFileSyncLocalPath, ""); err != nil {
			return nil, err
		}
	}

	entry, err := h.loadEntry(ctx, asset.EntryID)
	if entry == nil || err != nil {
		return job, err
	}

	postConvert := &domain.PostConvertData{
		FlavorAssetID:        asset.ID,
		AssetType:            domain.PostConvertAssetTypeFlavor,
		SrcFileSyncLocalPath: data.DestFileSyncLocalPath,
		SrcFileSyncRemoteID:  data.DestFileSyncRemoteID,
		FlavorParamsOutputID: data.FlavorParamsOutputID,
		CreateThumb:          data.CreateThumb,
		ThumbOffset:          data.ThumbOffset,
	}
	if _, err := h.jobManager.AddPostConvertJob(ctx, job, entry, postConvert); err != nil {
		return nil, fmt.Errorf("add post convert job for flavor %s: %w", asset.ID, err)
	}
	return job, nil
}

// ConvertFailed fails the flavor and notifies the partner when it asked for it.
func (h *Helper) ConvertFailed(ctx context.Context, job *domain.Job, data *domain.ConvertData, _ *domain.Job) (*domain.Job, error) {
	if _, err := h.setAssetStatus(ctx, data.FlavorAssetID, domain.AssetStatusError); err != nil {
		return nil, err
	}

	partner, err := h.partners.GetPartner(ctx, job.PartnerID)
	if errors.Is(err, domain.ErrPartnerNotFound) {
		return job, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load partner %d: %w", job.PartnerID, err)
	}
	if !partner.NotifyConversionFailure {
		return job, nil
	}

	params := []string{partner.AdminName, job.EntryID, data.FlavorAssetID, job.Message}
	if err := h.mailPartner(ctx, job, partner, domain.MailTypeConversionFailed, params); err != nil {
		return nil, err
	}
	return job, nil
}

// PostConvertFinished marks the validated flavor ready and the entry ready
// once it was still waiting for content.
func (h *Helper) PostConvertFinished(ctx context.Context, job *domain.Job, data *domain.PostConvertData, _ *domain.Job) (*domain.Job, error) {
	asset, err := h.setAssetStatus(ctx, data.FlavorAssetID, domain.AssetStatusReady)
	if asset == nil || err != nil {
		return job, err
	}

	entry, err := h.loadEntry(ctx, asset.EntryID)
	if entry == nil || err != nil {
		return job, err
	}
	if entry.Status == domain.EntryStatusPending || entry.Status == domain.EntryStatusPreconvert {
		entry.Status = domain.EntryStatusReady
		if err := h.entries.UpdateEntry(ctx, entry); err != nil {
			return nil, fmt.Errorf("mark entry %s ready: %w", entry.ID, err)
		}
	}
	return job, nil
}

// PostConvertFailed fails the flavor.
func (h *Helper) PostConvertFailed(ctx context.Context, job *domain.Job, data *domain.PostConvertData, _ *domain.Job) (*domain.Job, error) {
	if _, err := h.setAssetStatus(ctx, data.FlavorAssetID, domain.AssetStatusError); err != nil {
		return nil, err
	}
	return job, nil
}

func (h *Helper) ConvertProfilePending(ctx context.Context, job *domain.Job, _ *domain.ConvertProfileData, _ *domain.Job) (*domain.Job, error) {
	if _, err := h.setEntryStatus(ctx, job.EntryID, domain.EntryStatusPreconvert); err != nil {
		return nil, err
	}
	return job, nil
}

func (h *Helper) ConvertProfileFinished(ctx context.Context, job *domain.Job, _ *domain.ConvertProfileData, _ *domain.Job) (*domain.Job, error) {
	if _, err := h.setEntryStatus(ctx, job.EntryID, domain.EntryStatusReady); err != nil {
		return nil, err
	}
	return job, nil
}

func (h *Helper) ConvertProfileFailed(ctx context.Context, job *domain.Job, _ *domain.ConvertProfileData, _ *domain.Job) (*domain.Job, error) {
	if _, err := h.setEntryStatus(ctx, job.EntryID, domain.EntryStatusErrorConverting); err != nil {
		return nil, err
	}
	return job, nil
}

func (h *Helper) ConvertCollectionPending(ctx context.Context, job *domain.Job, data *domain.ConvertCollectionData, _ *domain.Job) (*domain.Job, error) {
	return job, h.setCollectionStatus(ctx, data, domain.AssetStatusConverting)
}

func (h *Helper) ConvertCollectionFinished(ctx context.Context, job *domain.Job, data *domain.ConvertCollectionData, _ *domain.Job) (*domain.Job, error) {
	return job, h.setCollectionStatus(ctx, data, domain.AssetStatusReady)
}

func (h *Helper) ConvertCollectionFailed(ctx context.Context, job *domain.Job, data *domain.ConvertCollectionData, _ *domain.Job) (*domain.Job, error) {
	return job, h.setCollectionStatus(ctx, data, domain.AssetStatusError)
}

func (h *Helper) setCollectionStatus(ctx context.Context, data *domain.ConvertCollectionData, status domain.AssetStatus) error {
	for _, assetID := range data.FlavorAssetIDs {
		if _, err := h.setAssetStatus(ctx, assetID, status); err != nil {
			return err
		}
	}
	return nil
}

// removeFile deletes a local file. A file that is already gone is not an error.
func removeFile(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Failed to remove file",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
