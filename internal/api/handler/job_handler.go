package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/cuongbtq/batchflow/internal/api/dto"
	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/storage"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// CreateJob handles POST /api/v1/jobs
// Creates a pending batch job and announces it to the flow
func (h *JobHandler) CreateJob(c *gin.Context) {
	var req dto.CreateJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	jobType := domain.JobType(req.JobType)
	if !domain.KnownJobType(jobType) {
		respondError(c, http.StatusBadRequest, "Unknown job_type")
		return
	}

	data, err := domain.DecodePayload(jobType, req.Data)
	if err != nil {
		h.logger.Error("Invalid job data", slog.String("error", err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid job data")
		return
	}

	job := domain.NewJob(jobType, data)
	job.JobSubType = req.JobSubType
	job.PartnerID = req.PartnerID
	job.EntryID = req.EntryID
	job.ParentJobID = req.ParentJobID
	job.DuplicationKey = req.DuplicationKey
	job.Priority = req.Priority

	job, err = h.jobManager.AddJob(c.Request.Context(), job)
	if err != nil {
		h.logger.Error("Failed to create job", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to create job")
		return
	}

	h.logger.Info("Job created",
		slog.String("job_id", job.ID),
		slog.String("job_type", string(job.JobType)),
	)
	h.respondJob(c, http.StatusCreated, job)
}

// GetJob handles GET /api/v1/jobs/:job_id
// Retrieves detailed information about a specific job
func (h *JobHandler) GetJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}
	h.respondJob(c, http.StatusOK, job)
}

// GetJobLog handles GET /api/v1/jobs/:job_id/log
// Returns the outcome summary linked from bulk upload notifications
func (h *JobHandler) GetJobLog(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	resp := dto.JobLogResponse{
		JobID:   job.ID,
		Status:  string(job.Status),
		Message: job.Message,
	}
	if data, ok := job.Data.(*domain.BulkUploadData); ok {
		resp.NumOfObjects = data.NumOfObjects
		resp.NumOfErrors = data.NumOfErrors
		resp.ResultsFilePath = data.ResultsFilePath
	}
	c.JSON(http.StatusOK, resp)
}

// ListJobs handles GET /api/v1/jobs
// Lists jobs with optional filtering and cursor pagination
func (h *JobHandler) ListJobs(c *gin.Context) {
	var req dto.ListJobsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.logger.Error("Invalid query parameters", slog.String("error", err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid query parameters")
		return
	}

	if req.PageSize <= 0 {
		req.PageSize = defaultPageSize
	}
	if req.PageSize > maxPageSize {
		req.PageSize = maxPageSize
	}

	cursor, err := DecodeJobCursor(req.Cursor)
	if err != nil {
		h.logger.Error("Invalid cursor", slog.String("error", err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid cursor")
		return
	}

	filter := storage.JobFilter{
		PartnerID: req.PartnerID,
		JobType:   domain.JobType(req.JobType),
		Status:    domain.JobStatus(req.Status),
		EntryID:   req.EntryID,
		PageSize:  req.PageSize,
		Cursor:    cursor,
	}

	jobs, err := h.jobs.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list jobs", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	// The store returns one extra row when another page exists
	hasMore := len(jobs) > req.PageSize
	if hasMore {
		jobs = jobs[:req.PageSize]
	}

	jobResponse := make([]dto.JobDTO, 0, len(jobs))
	for _, job := range jobs {
		jobDTO, err := dto.NewJobDTO(job)
		if err != nil {
			h.logger.Error("Failed to render job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
			respondError(c, http.StatusInternalServerError, "Failed to list jobs")
			return
		}
		jobResponse = append(jobResponse, jobDTO)
	}

	var nextCursor string
	if hasMore {
		lastJob := jobs[len(jobs)-1]
		nextCursor = EncodeJobCursor(&storage.JobCursor{
			CreatedAt: lastJob.CreatedAt,
			JobID:     lastJob.ID,
		})
	}

	c.JSON(http.StatusOK, dto.ListJobsResponse{
		Jobs:       jobResponse,
		NextCursor: nextCursor,
	})
}

// UpdateJobStatus handles POST /api/v1/jobs/:job_id/status
// Batch workers report progress here; every change reaches the flow manager
func (h *JobHandler) UpdateJobStatus(c *gin.Context) {
	var req dto.UpdateJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	status := domain.JobStatus(req.Status)
	if !status.Valid() {
		respondError(c, http.StatusBadRequest, "Unknown status")
		return
	}

	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	if req.Message != "" {
		job.Message = req.Message
	}

	job, err := h.jobManager.UpdateStatus(c.Request.Context(), job, status)
	if err != nil {
		h.logger.Error("Failed to update job status",
			slog.String("job_id", c.Param("job_id")),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "Failed to update job status")
		return
	}
	h.respondJob(c, http.StatusOK, job)
}

// AbortJob handles POST /api/v1/jobs/:job_id/abort
// Aborts an open job together with its open children
func (h *JobHandler) AbortJob(c *gin.Context) {
	job, ok := h.loadJob(c)
	if !ok {
		return
	}

	if job.IsClosed() {
		c.JSON(http.StatusConflict, gin.H{
			"error":  "Job is already closed",
			"status": job.Status,
		})
		return
	}

	ctx := c.Request.Context()
	job, err := h.jobManager.UpdateStatus(ctx, job, domain.JobStatusAborted)
	if err == nil {
		err = h.jobManager.AbortChildJobs(ctx, job)
	}
	if err != nil {
		h.logger.Error("Failed to abort job",
			slog.String("job_id", c.Param("job_id")),
			slog.String("error", err.Error()),
		)
		respondError(c, http.StatusInternalServerError, "Failed to abort job")
		return
	}

	h.logger.Info("Job aborted", slog.String("job_id", job.ID))
	h.respondJob(c, http.StatusOK, job)
}

// loadJob validates the job_id path parameter and loads the job. It writes
// the error response itself and reports whether the handler may continue.
func (h *JobHandler) loadJob(c *gin.Context) (*domain.Job, bool) {
	jobID := c.Param("job_id")
	if _, err := uuid.Parse(jobID); err != nil {
		h.logger.Error("Invalid job_id format", slog.String("job_id", jobID), slog.String("error", err.Error()))
		respondError(c, http.StatusBadRequest, "job_id must be a valid UUID")
		return nil, false
	}

	job, err := h.jobs.GetJob(c.Request.Context(), jobID)
	if errors.Is(err, domain.ErrJobNotFound) {
		respondError(c, http.StatusNotFound, "Job not found")
		return nil, false
	}
	if err != nil {
		h.logger.Error("Failed to get job", slog.String("job_id", jobID), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to get job")
		return nil, false
	}
	return job, true
}

func (h *JobHandler) respondJob(c *gin.Context, status int, job *domain.Job) {
	jobDTO, err := dto.NewJobDTO(job)
	if err != nil {
		h.logger.Error("Failed to render job", slog.String("job_id", job.ID), slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to render job")
		return
	}
	c.JSON(status, jobDTO)
}
