package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/batchflow/internal/api/handler"
)

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())

	// Health check endpoint
	r.GET("/health", healthHandler(deps.HealthChecks))

	jobHandler := handler.NewJobHandler(deps)
	eventHandler := handler.NewEventHandler(deps)

	v1 := r.Group("/api/v1")
	{
		jobs := v1.Group("/jobs")
		{
			jobs.POST("", jobHandler.CreateJob)
			jobs.GET("", jobHandler.ListJobs)
			jobs.GET("/:job_id", jobHandler.GetJob)
			jobs.GET("/:job_id/log", jobHandler.GetJobLog)

			// POST /api/v1/jobs/:job_id/status - batch workers report progress
			jobs.POST("/:job_id/status", jobHandler.UpdateJobStatus)
			jobs.POST("/:job_id/abort", jobHandler.AbortJob)
		}

		// POST /api/v1/events - entity events (asset added, entry changed, ...)
		v1.POST("/events", eventHandler.PublishEvent)
	}

	return r
}

func healthHandler(checks map[string]handler.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		failures := gin.H{}
		for name, check := range checks {
			if err := check.HealthCheck(c.Request.Context()); err != nil {
				status = http.StatusServiceUnavailable
				failures[name] = err.Error()
			}
		}

		if status != http.StatusOK {
			c.JSON(status, gin.H{
				"status":   "unhealthy",
				"service":  "batchflow-api-service",
				"failures": failures,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "batchflow-api-service",
		})
	}
}
