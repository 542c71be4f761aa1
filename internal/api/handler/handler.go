package handler

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/storage"
)

// JobReader reads jobs for the API.
type JobReader interface {
	GetJob(ctx context.Context, jobID string) (*domain.Job, error)
	ListJobs(ctx context.Context, filter storage.JobFilter) ([]*domain.Job, error)
}

// JobManager creates jobs and changes their status.
type JobManager interface {
	AddJob(ctx context.Context, job *domain.Job) (*domain.Job, error)
	UpdateStatus(ctx context.Context, job *domain.Job, status domain.JobStatus) (*domain.Job, error)
	AbortChildJobs(ctx context.Context, job *domain.Job) error
}

// Publisher delivers encoded flow messages.
type Publisher interface {
	PublishWithRetry(ctx context.Context, body []byte, contentType string) error
}

// HealthChecker reports whether a backing service is reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger       *slog.Logger
	Jobs         JobReader
	JobManager   JobManager
	Publisher    Publisher
	HealthChecks map[string]HealthChecker
}

// JobHandler handles job-related HTTP requests
type JobHandler struct {
	logger     *slog.Logger
	jobs       JobReader
	jobManager JobManager
}

// NewJobHandler creates a new JobHandler instance
func NewJobHandler(deps *Dependencies) *JobHandler {
	return &JobHandler{
		logger:     deps.Logger,
		jobs:       deps.Jobs,
		jobManager: deps.JobManager,
	}
}

// EventHandler accepts entity events and forwards them to the flow
type EventHandler struct {
	logger    *slog.Logger
	publisher Publisher
}

// NewEventHandler creates a new EventHandler instance
func NewEventHandler(deps *Dependencies) *EventHandler {
	return &EventHandler{
		logger:    deps.Logger,
		publisher: deps.Publisher,
	}
}

func respondError(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"error": msg})
}
