package domain

// MailType selects the email template a mail job renders.
type MailType int

const (
	MailTypeBulkDownloadReady  MailType = 36
	MailTypeBulkUploadFinished MailType = 64
	MailTypeBulkUploadFailed   MailType = 65
	MailTypeBulkUploadAborted  MailType = 66
	MailTypeConversionFailed   MailType = 80
	MailTypeBatchAlert         MailType = 90
)

// MailPriority orders outgoing mail.
type MailPriority int

const (
	MailPriorityHigh   MailPriority = 1
	MailPriorityNormal MailPriority = 3
	MailPriorityLow    MailPriority = 5
)

// MailStatus tracks delivery of a mail job.
type MailStatus string

const (
	MailStatusPending MailStatus = "pending"
	MailStatusSent    MailStatus = "sent"
	MailStatusError   MailStatus = "error"
)

// MailData is the payload of a MAIL job. Body and subject params fill the
// numbered placeholders of the template.
type MailData struct {
	MailType       MailType     `json:"mail_type"`
	Priority       MailPriority `json:"priority"`
	Status         MailStatus   `json:"status"`
	FromEmail      string       `json:"from_email"`
	FromName       string       `json:"from_name"`
	RecipientEmail string       `json:"recipient_email"`
	SubjectParams  []string     `json:"subject_params"`
	BodyParams     []string     `json:"body_params"`
}
