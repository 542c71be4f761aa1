// Package helper implements the domain actions the flow manager triggers on
// job transitions and entity events.
package helper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/flow"
)

// Dependencies holds the stores and the job API the helper acts on.
type Dependencies struct {
	Logger     *slog.Logger
	Jobs       flow.JobStore
	Entries    flow.EntryStore
	Assets     flow.AssetStore
	FileSyncs  flow.FileSyncLocator
	Partners   flow.PartnerStore
	JobManager flow.JobManager

	// ServiceURL is the public base URL used in links sent to partners.
	ServiceURL string
	// MailFromEmail and MailFromName sign partner notifications.
	MailFromEmail string
	MailFromName  string
}

// Helper is the default flow.Helper.
type Helper struct {
	logger     *slog.Logger
	jobs       flow.JobStore
	entries    flow.EntryStore
	assets     flow.AssetStore
	fileSyncs  flow.FileSyncLocator
	partners   flow.PartnerStore
	jobManager flow.JobManager

	serviceURL    string
	mailFromEmail string
	mailFromName  string
	now           func() time.Time
}

var _ flow.Helper = (*Helper)(nil)

// New creates a Helper.
func New(deps *Dependencies) *Helper {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Helper{
		logger:        logger.With(slog.String("component", "flow_helper")),
		jobs:          deps.Jobs,
		entries:       deps.Entries,
		assets:        deps.Assets,
		fileSyncs:     deps.FileSyncs,
		partners:      deps.Partners,
		jobManager:    deps.JobManager,
		serviceURL:    deps.ServiceURL,
		mailFromEmail: deps.MailFromEmail,
		mailFromName:  deps.MailFromName,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// setAssetStatus moves an asset to status. A missing asset is logged and skipped.
func (h *Helper) setAssetStatus(ctx context.Context, assetID string, status domain.AssetStatus) (*domain.Asset, error) {
	asset, err := h.assets.GetAsset(ctx, assetID)
	if errors.Is(err, domain.ErrAssetNotFound) {
		h.logger.Warn("Asset not found", slog.String("asset_id", assetID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load asset %s: %w", assetID, err)
	}

	if asset.Status == status {
		return asset, nil
	}
	asset.Status = status
	if err := h.assets.UpdateAsset(ctx, asset); err != nil {
		return nil, fmt.Errorf("set asset %s to %s: %w", assetID, status, err)
	}
	return asset, nil
}

// setEntryStatus moves an entry to status. A missing entry is logged and skipped.
func (h *Helper) setEntryStatus(ctx context.Context, entryID string, status domain.EntryStatus) (*domain.Entry, error) {
	entry, err := h.loadEntry(ctx, entryID)
	if entry == nil || err != nil {
		return nil, err
	}

	if entry.Status == status {
		return entry, nil
	}
	entry.Status = status
	if err := h.entries.UpdateEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("set entry %s to %s: %w", entryID, status, err)
	}
	return entry, nil
}

// loadEntry returns the entry whatever its status, or nil when it does not exist.
func (h *Helper) loadEntry(ctx context.Context, entryID string) (*domain.Entry, error) {
	if entryID == "" {
		return nil, nil
	}

	entry, err := h.entries.GetEntryNoFilter(ctx, entryID)
	if errors.Is(err, domain.ErrEntryNotFound) {
		h.logger.Warn("Entry not found", slog.String("entry_id", entryID))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load entry %s: %w", entryID, err)
	}
	return entry, nil
}

// storeFile records a ready file sync for key.
func (h *Helper) storeFile(ctx context.Context, key domain.SyncKey, fileType domain.FileSyncType, path, remoteAssetID string) (*domain.FileSync, error) {
	now := h.now()
	fs := &domain.FileSync{
		ID:            uuid.New().String(),
		Key:           key,
		FileType:      fileType,
		Status:        domain.FileSyncStatusReady,
		FilePath:      path,
		RemoteAssetID: remoteAssetID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.fileSyncs.CreateFileSync(ctx, fs); err != nil {
		return nil, fmt.Errorf("create file sync %s: %w", key, err)
	}
	return fs, nil
}

// setFileSyncStatus moves a file sync to status. A missing file sync is logged and skipped.
func (h *Helper) setFileSyncStatus(ctx context.Context, fileSyncID string, status domain.FileSyncStatus) error {
	fs, err := h.fileSyncs.GetFileSync(ctx, fileSyncID)
	if errors.Is(err, domain.ErrFileSyncNotFound) {
		h.logger.Warn("File sync not found", slog.String("file_sync_id", fileSyncID))
		return nil
	}
	if err != nil {
		return fmt.Errorf("load file sync %s: %w", fileSyncID, err)
	}

	fs.Status = status
	fs.UpdatedAt = h.now()
	if err := h.fileSyncs.UpdateFileSync(ctx, fs); err != nil {
		return fmt.Errorf("set file sync %s to %s: %w", fileSyncID, status, err)
	}
	return nil
}

// stampMessage sets the job's message and persists it.
func (h *Helper) stampMessage(ctx context.Context, job *domain.Job, message string) (*domain.Job, error) {
	job.Message = message
	if err := h.jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update message of job %s: %w", job.ID, err)
	}
	return job, nil
}

// mailPartner enqueues a mail job to the partner's admin.
func (h *Helper) mailPartner(ctx context.Context, parent *domain.Job, partner *domain.Partner, mailType domain.MailType, bodyParams []string) error {
	data := &domain.MailData{
		MailType:       mailType,
		Priority:       domain.MailPriorityNormal,
		Status:         domain.MailStatusPending,
		FromEmail:      h.mailFromEmail,
		FromName:       h.mailFromName,
		RecipientEmail: partner.AdminEmail,
		SubjectParams:  []string{},
		BodyParams:     bodyParams,
	}
	if _, err := h.jobManager.AddMailJob(ctx, parent, partner.ID, data); err != nil {
		return fmt.Errorf("add mail job for partner %d: %w", partner.ID, err)
	}
	return nil
}
