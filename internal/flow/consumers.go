package flow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// The consumers below report (consumed, err). Unlike OnJobStatusChanged they
// do not contain their own failures; the delivery layer decides what to do
// with a returned error.

// ShouldConsumeAddedEvent reports whether ObjectAdded handles obj.
func (m *Manager) ShouldConsumeAddedEvent(obj domain.Object) bool {
	_, ok := obj.(*domain.Asset)
	return ok
}

// ObjectAdded starts processing of a newly added asset. raisedJob is the job
// whose work created the asset, if any.
func (m *Manager) ObjectAdded(ctx context.Context, obj domain.Object, raisedJob *domain.Job) (bool, error) {
	asset, ok := obj.(*domain.Asset)
	if !ok {
		return true, nil
	}

	entry, err := m.entries.GetEntryNoFilter(ctx, asset.EntryID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		m.logger.Warn("Entry of added asset not found",
			slog.String("asset_id", asset.ID),
			slog.String("entry_id", asset.EntryID),
		)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load entry of asset %s: %w", asset.ID, err)
	}

	if asset.Status == domain.AssetStatusQueued || asset.Status == domain.AssetStatusImporting {
		switch {
		case !asset.IsFlavor():
			asset.Status = domain.AssetStatusReady
			if err := m.assets.UpdateAsset(ctx, asset); err != nil {
				return false, fmt.Errorf("mark asset %s ready: %w", asset.ID, err)
			}

		case asset.IsOriginal:
			if entry.Type == domain.EntryTypeMediaClip {
				if err := m.startConvertProfile(ctx, raisedJob, entry, asset); err != nil {
					return false, err
				}
			}

		default:
			asset.Status = domain.AssetStatusValidating
			if err := m.assets.UpdateAsset(ctx, asset); err != nil {
				return false, fmt.Errorf("mark flavor %s validating: %w", asset.ID, err)
			}
		}
	}

	if asset.Status == domain.AssetStatusReady && asset.IsThumbnail() {
		if asset.FlavorParamsID != 0 {
			if err := m.helper.GenerateThumbnailsFromFlavor(ctx, asset.EntryID, raisedJob, asset.FlavorParamsID); err != nil {
				return false, fmt.Errorf("generate thumbnails for entry %s: %w", asset.EntryID, err)
			}
		}
		return true, nil
	}

	if asset.IsOriginal && entry.Status == domain.EntryStatusNoContent {
		entry.Status = domain.EntryStatusPending
		if err := m.entries.UpdateEntry(ctx, entry); err != nil {
			return false, fmt.Errorf("mark entry %s pending: %w", entry.ID, err)
		}
	}

	return true, nil
}

// startConvertProfile adds a convert profile job for an original flavor whose
// file is already stored.
func (m *Manager) startConvertProfile(ctx context.Context, raisedJob *domain.Job, entry *domain.Entry, asset *domain.Asset) error {
	key := asset.SyncKey(domain.FileSyncSubTypeAsset)

	exists, err := m.fileSyncs.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check file sync %s: %w", key, err)
	}
	if !exists {
		return nil
	}

	fileSync, err := m.fileSyncs.ReadyFileSync(ctx, key)
	if errors.Is(err, domain.ErrFileSyncNotFound) {
		m.logger.Debug("Original flavor has no ready file sync yet", slog.String("asset_id", asset.ID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load ready file sync %s: %w", key, err)
	}

	path := fileSync.FilePath
	if fileSync.FileType != domain.FileSyncTypeURL {
		if path, err = m.fileSyncs.LocalPath(ctx, key); err != nil {
			return fmt.Errorf("resolve local path %s: %w", key, err)
		}
	}

	remoteAssetID, err := m.fileSyncs.RemoteAssetID(ctx, key)
	if err != nil {
		return fmt.Errorf("resolve remote asset id %s: %w", key, err)
	}

	if _, err := m.jobManager.AddConvertProfileJob(ctx, raisedJob, entry, asset.ID, path, remoteAssetID); err != nil {
		return fmt.Errorf("add convert profile job for asset %s: %w", asset.ID, err)
	}
	return nil
}

// ShouldConsumeChangedEvent reports whether ObjectChanged handles ev.
func (m *Manager) ShouldConsumeChangedEvent(ev domain.ChangedEvent) bool {
	switch obj := ev.Object.(type) {
	case *domain.Entry:
		return isReplacementReady(obj, ev)
	case *domain.UploadToken:
		return isUploadComplete(obj, ev)
	case *domain.Job:
		return isBulkUploadAbort(obj, ev)
	case *domain.UserRole:
		return ev.Modified(domain.ColumnUserRolePermissionNames)
	case *domain.Asset:
		return obj.IsFlavor() && ev.Modified(domain.ColumnAssetStatus)
	}
	return false
}

// ObjectChanged reacts to a modified entry, upload token, bulk upload job,
// user role or flavor asset.
func (m *Manager) ObjectChanged(ctx context.Context, ev domain.ChangedEvent) (bool, error) {
	switch obj := ev.Object.(type) {
	case *domain.Entry:
		if isReplacementReady(obj, ev) {
			if err := m.helper.HandleEntryReplacement(ctx, obj); err != nil {
				return false, fmt.Errorf("handle replacement by entry %s: %w", obj.ID, err)
			}
		}

	case *domain.UploadToken:
		if isUploadComplete(obj, ev) {
			if err := m.helper.UploadFinished(ctx, obj); err != nil {
				return false, fmt.Errorf("finish upload token %s: %w", obj.ID, err)
			}
		}

	case *domain.Job:
		if isBulkUploadAbort(obj, ev) {
			if err := m.notifyBulkUploadAborted(ctx, obj); err != nil {
				return false, err
			}
		}

	case *domain.UserRole:
		if ev.Modified(domain.ColumnUserRolePermissionNames) {
			filter := domain.ObjectFilter{RoleIDEqual: obj.ID}
			if _, err := m.jobManager.AddIndexJob(ctx, obj.PartnerID, domain.IndexObjectUser, filter, false); err != nil {
				return false, fmt.Errorf("reindex users of role %s: %w", obj.ID, err)
			}
		}

	case *domain.Asset:
		if obj.IsFlavor() && ev.Modified(domain.ColumnAssetStatus) {
			return m.flavorAssetChanged(ctx, obj)
		}
	}

	return true, nil
}

func isReplacementReady(entry *domain.Entry, ev domain.ChangedEvent) bool {
	return ev.Modified(domain.ColumnEntryStatus) &&
		entry.Status == domain.EntryStatusReady &&
		entry.ReplacedEntryID != ""
}

func isUploadComplete(token *domain.UploadToken, ev domain.ChangedEvent) bool {
	return ev.Modified(domain.ColumnUploadTokenStatus) && token.Status == domain.UploadTokenStatusFullUpload
}

// isBulkUploadAbort matches a bulk upload job that was aborted after it had closed.
func isBulkUploadAbort(job *domain.Job, ev domain.ChangedEvent) bool {
	return job.JobType == domain.JobTypeBulkUpload &&
		ev.Modified(domain.ColumnJobStatus) &&
		job.Status == domain.JobStatusAborted &&
		domain.JobStatus(ev.OldValue(domain.ColumnJobStatus)).IsClosed()
}

func (m *Manager) notifyBulkUploadAborted(ctx context.Context, job *domain.Job) error {
	partner, err := m.partners.GetPartner(ctx, job.PartnerID)
	if err != nil {
		return fmt.Errorf("load partner %d: %w", job.PartnerID, err)
	}
	if !partner.NotifyBulkUpload {
		return nil
	}

	params := []string{partner.AdminName, job.ID, m.helper.BulkUploadLogURL(job)}
	if err := m.helper.SendBulkUploadNotificationEmail(ctx, job, domain.MailTypeBulkUploadAborted, params); err != nil {
		return fmt.Errorf("notify bulk upload abort %s: %w", job.ID, err)
	}
	return nil
}

func (m *Manager) flavorAssetChanged(ctx context.Context, asset *domain.Asset) (bool, error) {
	entry, err := m.entries.GetEntryNoFilter(ctx, asset.EntryID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		m.logger.Warn("Entry of changed flavor not found",
			slog.String("asset_id", asset.ID),
			slog.String("entry_id", asset.EntryID),
		)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load entry of flavor %s: %w", asset.ID, err)
	}

	m.logger.Debug("Flavor asset status changed",
		slog.String("asset_id", asset.ID),
		slog.String("status", string(asset.Status)),
	)

	if asset.IsOriginal {
		return true, nil
	}

	switch asset.Status {
	case domain.AssetStatusValidating:
		if err := m.validateFlavor(ctx, entry, asset); err != nil {
			return false, err
		}

	case domain.AssetStatusReady:
		if entry.Status == domain.EntryStatusNoContent {
			entry.Status = domain.EntryStatusPending
			if err := m.entries.UpdateEntry(ctx, entry); err != nil {
				return false, fmt.Errorf("mark entry %s pending: %w", entry.ID, err)
			}
		}
	}

	return true, nil
}

// validateFlavor adds a post-convert job for a flavor that arrived already
// converted, when its file is available.
func (m *Manager) validateFlavor(ctx context.Context, entry *domain.Entry, asset *domain.Asset) error {
	key := asset.SyncKey(domain.FileSyncSubTypeAsset)

	fileSync, err := m.fileSyncs.LocalFileSync(ctx, key)
	if err != nil {
		return fmt.Errorf("load local file sync %s: %w", key, err)
	}
	if fileSync == nil {
		return nil
	}

	remoteAssetID, err := m.fileSyncs.RemoteAssetID(ctx, key)
	if err != nil {
		return fmt.Errorf("resolve remote asset id %s: %w", key, err)
	}
	if fileSync.FilePath == "" && remoteAssetID == "" {
		return nil
	}

	data := &domain.PostConvertData{
		FlavorAssetID:        asset.ID,
		AssetType:            domain.PostConvertAssetTypeFlavor,
		SrcFileSyncLocalPath: fileSync.FilePath,
		SrcFileSyncRemoteID:  remoteAssetID,
		FlavorParamsOutputID: asset.FlavorParamsID,
		CreateThumb:          entry.CreateThumb,
		ThumbOffset:          entry.ThumbOffset,
	}
	if _, err := m.jobManager.AddPostConvertJob(ctx, nil, entry, data); err != nil {
		return fmt.Errorf("add post convert job for flavor %s: %w", asset.ID, err)
	}
	return nil
}

// ShouldConsumeDeletedEvent reports whether ObjectDeleted handles obj.
func (m *Manager) ShouldConsumeDeletedEvent(obj domain.Object) bool {
	_, ok := obj.(*domain.UploadToken)
	return ok
}

// ObjectDeleted cancels a deleted upload token.
func (m *Manager) ObjectDeleted(ctx context.Context, obj domain.Object) (bool, error) {
	token, ok := obj.(*domain.UploadToken)
	if !ok {
		return true, nil
	}

	if err := m.helper.UploadCanceled(ctx, token); err != nil {
		return false, fmt.Errorf("cancel upload token %s: %w", token.ID, err)
	}
	return true, nil
}

// ShouldConsumeReadyForReplacementEvent reports whether ObjectReadyForReplacement handles obj.
func (m *Manager) ShouldConsumeReadyForReplacementEvent(obj domain.Object) bool {
	_, ok := obj.(*domain.Entry)
	return ok
}

// ObjectReadyForReplacement replaces the entry that obj stands in for with obj.
// A missing target is logged and ignored.
func (m *Manager) ObjectReadyForReplacement(ctx context.Context, obj domain.Object) (bool, error) {
	replacement, ok := obj.(*domain.Entry)
	if !ok {
		return true, nil
	}

	target, err := m.entries.GetEntry(ctx, replacement.ReplacedEntryID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		m.logger.Error(fmt.Sprintf("Real entry id [%s] not found", replacement.ReplacedEntryID),
			slog.String("replacing_entry_id", replacement.ID),
		)
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("load replaced entry %s: %w", replacement.ReplacedEntryID, err)
	}

	if err := m.helper.ReplaceEntry(ctx, target, replacement); err != nil {
		return false, fmt.Errorf("replace entry %s: %w", target.ID, err)
	}
	return true, nil
}
