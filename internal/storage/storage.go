// Package storage holds the query types shared by the store implementations.
package storage

import (
	"time"

	"github.com/cuongbtq/batchflow/internal/domain"
)

// JobFilter selects a page of jobs ordered by creation time, newest first.
type JobFilter struct {
	PartnerID int64
	JobType   domain.JobType
	Status    domain.JobStatus
	EntryID   string
	PageSize  int
	Cursor    *JobCursor
}

// JobCursor is the position after which the next page starts.
type JobCursor struct {
	CreatedAt time.Time
	JobID     string
}

// After reports whether a job created at createdAt with id jobID sorts after
// the cursor in newest-first order.
func (c *JobCursor) After(createdAt time.Time, jobID string) bool {
	if createdAt.Equal(c.CreatedAt) {
		return jobID < c.JobID
	}
	return createdAt.Before(c.CreatedAt)
}
