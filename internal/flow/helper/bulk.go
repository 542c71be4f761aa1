package helper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/cuongbtq/batchflow/internal/domain"
)

func (h *Helper) BulkUploadFinished(ctx context.Context, job *domain.Job, data *domain.BulkUploadData, _ *domain.Job) (*domain.Job, error) {
	msg := fmt.Sprintf("Bulk upload finished: %d objects, %d errors", data.NumOfObjects, data.NumOfErrors)
	return h.closeBulkUpload(ctx, job, msg, domain.MailTypeBulkUploadFinished)
}

func (h *Helper) BulkUploadFailed(ctx context.Context, job *domain.Job, data *domain.BulkUploadData, _ *domain.Job) (*domain.Job, error) {
	msg := fmt.Sprintf("Bulk upload of %s failed", data.FileName)
	if job.Message != "" {
		msg += ": " + job.Message
	}
	return h.closeBulkUpload(ctx, job, msg, domain.MailTypeBulkUploadFailed)
}

func (h *Helper) closeBulkUpload(ctx context.Context, job *domain.Job, msg string, mailType domain.MailType) (*domain.Job, error) {
	job, err := h.stampMessage(ctx, job, msg)
	if err != nil {
		return nil, err
	}

	partner, err := h.partners.GetPartner(ctx, job.PartnerID)
	if errors.Is(err, domain.ErrPartnerNotFound) {
		return job, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load partner %d: %w", job.PartnerID, err)
	}
	if !partner.NotifyBulkUpload {
		return job, nil
	}

	params := []string{partner.AdminName, job.ID, h.BulkUploadLogURL(job)}
	if err := h.mailPartner(ctx, job, partner, mailType, params); err != nil {
		return nil, err
	}
	return job, nil
}

// SendBulkUploadNotificationEmail mails the partner admin about a bulk upload job.
func (h *Helper) SendBulkUploadNotificationEmail(ctx context.Context, job *domain.Job, mailType domain.MailType, bodyParams []string) error {
	partner, err := h.partners.GetPartner(ctx, job.PartnerID)
	if err != nil {
		return fmt.Errorf("load partner %d: %w", job.PartnerID, err)
	}
	return h.mailPartner(ctx, job, partner, mailType, bodyParams)
}

// BulkUploadLogURL returns the public link to a bulk upload job's log.
func (h *Helper) BulkUploadLogURL(job *domain.Job) string {
	link, err := url.JoinPath(h.serviceURL, "api", "v1", "jobs", job.ID, "log")
	if err != nil {
		h.logger.Warn("Invalid service URL", slog.String("service_url", h.serviceURL))
		return ""
	}
	return link
}

// BulkDownloadPending drops entries that no longer exist from the download.
func (h *Helper) BulkDownloadPending(ctx context.Context, job *domain.Job, data *domain.BulkDownloadData, _ *domain.Job) (*domain.Job, error) {
	kept := make([]string, 0, len(data.EntryIDs))
	for _, entryID := range data.EntryIDs {
		_, err := h.entries.GetEntry(ctx, entryID)
		if errors.Is(err, domain.ErrEntryNotFound) {
			h.logger.Info("Dropping missing entry from bulk download",
				slog.String("job_id", job.ID),
				slog.String("entry_id", entryID),
			)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load entry %s: %w", entryID, err)
		}
		kept = append(kept, entryID)
	}

	if len(kept) == len(data.EntryIDs) {
		return job, nil
	}

	data.EntryIDs = kept
	job.Data = data
	if err := h.jobs.UpdateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("update bulk download job %s: %w", job.ID, err)
	}
	return job, nil
}

// BulkDownloadFinished mails the download link to the requester.
func (h *Helper) BulkDownloadFinished(ctx context.Context, job *domain.Job, data *domain.BulkDownloadData, _ *domain.Job) (*domain.Job, error) {
	if data.RecipientEmail == "" {
		return job, nil
	}

	mail := &domain.MailData{
		MailType:       domain.MailTypeBulkDownloadReady,
		Priority:       domain.MailPriorityNormal,
		Status:         domain.MailStatusPending,
		FromEmail:      h.mailFromEmail,
		FromName:       h.mailFromName,
		RecipientEmail: data.RecipientEmail,
		SubjectParams:  []string{},
		BodyParams:     []string{data.PuserID, data.DownloadURL},
	}
	if _, err := h.jobManager.AddMailJob(ctx, job, job.PartnerID, mail); err != nil {
		return nil, fmt.Errorf("mail bulk download link for job %s: %w", job.ID, err)
	}
	return job, nil
}

func (h *Helper) IndexPending(ctx context.Context, job *domain.Job, data *domain.IndexData, _ *domain.Job) (*domain.Job, error) {
	return h.stampMessage(ctx, job, fmt.Sprintf("Indexing %s objects", data.ObjectType))
}

func (h *Helper) IndexFinished(ctx context.Context, job *domain.Job, data *domain.IndexData, _ *domain.Job) (*domain.Job, error) {
	return h.stampMessage(ctx, job, fmt.Sprintf("Indexed %s objects", data.ObjectType))
}

func (h *Helper) IndexFailed(ctx context.Context, job *domain.Job, data *domain.IndexData, _ *domain.Job) (*domain.Job, error) {
	msg := fmt.Sprintf("Indexing %s objects failed", data.ObjectType)
	if data.LastIndexID != "" {
		msg += " after " + data.LastIndexID
	}
	return h.stampMessage(ctx, job, msg)
}
