package helper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// ProvisionProvideFinished stores the provisioned stream on the live entry.
func (h *Helper) ProvisionProvideFinished(ctx context.Context, job *domain.Job, data *domain.ProvisionData, _ *domain.Job) (*domain.Job, error) {
	entry, err := h.loadEntry(ctx, job.EntryID)
	if entry == nil || err != nil {
		return job, err
	}

	entry.StreamName = data.StreamName
	entry.PrimaryBroadcastURL = data.PrimaryBroadcastURL
	entry.SecondaryBroadcastURL = data.SecondaryBroadcastURL
	entry.Status = domain.EntryStatusReady
	if err := h.entries.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("store stream on entry %s: %w", entry.ID, err)
	}
	return job, nil
}

func (h *Helper) ProvisionProvideFailed(ctx context.Context, job *domain.Job, _ *domain.ProvisionData, _ *domain.Job) (*domain.Job, error) {
	if _, err := h.setEntryStatus(ctx, job.EntryID, domain.EntryStatusErrorConverting); err != nil {
		return nil, err
	}
	return job, nil
}

// HandleEntryReplacement replaces the entry that replacement stands in for.
func (h *Helper) HandleEntryReplacement(ctx context.Context, replacement *domain.Entry) error {
	target, err := h.entries.GetEntry(ctx, replacement.ReplacedEntryID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		h.logger.Warn("Replaced entry not found",
			slog.String("entry_id", replacement.ReplacedEntryID),
			slog.String("replacing_entry_id", replacement.ID),
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("load replaced entry %s: %w", replacement.ReplacedEntryID, err)
	}
	return h.ReplaceEntry(ctx, target, replacement)
}

// ReplaceEntry moves replacement's assets onto target, drops target's old
// assets and deletes the temporary replacement entry.
func (h *Helper) ReplaceEntry(ctx context.Context, target, replacement *domain.Entry) error {
	old, err := h.assets.ListAssetsByEntry(ctx, target.ID)
	if err != nil {
		return fmt.Errorf("list assets of entry %s: %w", target.ID, err)
	}
	for _, a := range old {
		a.Status = domain.AssetStatusDeleted
		if err := h.assets.UpdateAsset(ctx, a); err != nil {
			return fmt.Errorf("delete replaced asset %s: %w", a.ID, err)
		}
	}

	moved, err := h.assets.ListAssetsByEntry(ctx, replacement.ID)
	if err != nil {
		return fmt.Errorf("list assets of entry %s: %w", replacement.ID, err)
	}
	for _, a := range moved {
		a.EntryID = target.ID
		if err := h.assets.UpdateAsset(ctx, a); err != nil {
			return fmt.Errorf("move asset %s to entry %s: %w", a.ID, target.ID, err)
		}
	}

	target.ReplacingEntryID = ""
	target.Status = domain.EntryStatusReady
	if err := h.entries.UpdateEntry(ctx, target); err != nil {
		return fmt.Errorf("update replaced entry %s: %w", target.ID, err)
	}

	replacement.ReplacedEntryID = ""
	replacement.Status = domain.EntryStatusDeleted
	if err := h.entries.UpdateEntry(ctx, replacement); err != nil {
		return fmt.Errorf("delete replacing entry %s: %w", replacement.ID, err)
	}

	h.logger.Info("Entry replaced",
		slog.String("entry_id", target.ID),
		slog.String("replacing_entry_id", replacement.ID),
		slog.Int("assets", len(moved)),
	)
	return nil
}

// UploadFinished attaches a completed upload to its entry as the original
// flavor and starts conversion.
func (h *Helper) UploadFinished(ctx context.Context, token *domain.UploadToken) error {
	if token.EntryID == "" {
		return nil
	}

	entry, err := h.loadEntry(ctx, token.EntryID)
	if entry == nil || err != nil {
		return err
	}

	now := h.now()
	asset := &domain.Asset{
		ID:         uuid.New().String(),
		EntryID:    entry.ID,
		PartnerID:  entry.PartnerID,
		Kind:       domain.AssetKindFlavor,
		Status:     domain.AssetStatusQueued,
		IsOriginal: true,
		Version:    1,
		FileExt:    strings.TrimPrefix(filepath.Ext(token.FileName), "."),
		Size:       token.FileSize,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := h.assets.CreateAsset(ctx, asset); err != nil {
		return fmt.Errorf("create original flavor for upload %s: %w", token.ID, err)
	}

	if _, err := h.storeFile(ctx, asset.SyncKey(domain.FileSyncSubTypeAsset), domain.FileSyncTypeFile, token.UploadTempPath, ""); err != nil {
		return err
	}

	if _, err := h.jobManager.AddConvertProfileJob(ctx, nil, entry, asset.ID, token.UploadTempPath, ""); err != nil {
		return fmt.Errorf("start conversion of upload %s: %w", token.ID, err)
	}
	return nil
}

// UploadCanceled removes the uploaded temp file.
func (h *Helper) UploadCanceled(_ context.Context, token *domain.UploadToken) error {
	removeFile(h.logger, token.UploadTempPath)
	return nil
}
