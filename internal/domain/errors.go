package domain

import "errors"

var (
	// ErrJobNotFound is returned when a job cannot be found in the store
	ErrJobNotFound = errors.New("job not found")

	// ErrEntryNotFound is returned when an entry cannot be found in the store
	ErrEntryNotFound = errors.New("entry not found")

	// ErrAssetNotFound is returned when an asset cannot be found in the store
	ErrAssetNotFound = errors.New("asset not found")

	// ErrFileSyncNotFound is returned when no file sync exists for a key or id
	ErrFileSyncNotFound = errors.New("file sync not found")

	// ErrPartnerNotFound is returned when a partner cannot be found in the store
	ErrPartnerNotFound = errors.New("partner not found")

	// ErrInvalidPayload is returned when job payload JSON is malformed or of the wrong type
	ErrInvalidPayload = errors.New("invalid job payload")

	// ErrInvalidMessage is returned when a flow message cannot be decoded
	ErrInvalidMessage = errors.New("invalid flow message")

	// ErrLockNotAcquired is returned when another runner holds the job lock
	ErrLockNotAcquired = errors.New("job lock held by another runner")
)

// RetryableError wraps transient errors that should trigger a requeue
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
