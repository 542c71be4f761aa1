package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cuongbtq/batchflow/internal/api/dto"
	"github.com/cuongbtq/batchflow/internal/domain"
	"github.com/cuongbtq/batchflow/internal/message"
)

// PublishEvent handles POST /api/v1/events
// Forwards an entity event to the flow manager through the broker
func (h *EventHandler) PublishEvent(c *gin.Context) {
	var req dto.PublishEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		respondError(c, http.StatusBadRequest, "Invalid request body")
		return
	}

	msg := &message.Message{
		Kind:        message.Kind(req.Kind),
		ObjectType:  domain.ObjectType(req.ObjectType),
		Object:      req.Object,
		OldValues:   make(map[domain.Column]string, len(req.OldValues)),
		RaisedJobID: req.RaisedJobID,
	}
	for _, col := range req.ModifiedColumns {
		msg.ModifiedColumns = append(msg.ModifiedColumns, domain.Column(col))
	}
	for col, v := range req.OldValues {
		msg.OldValues[domain.Column(col)] = v
	}

	if msg.Kind == message.KindJobUpdated {
		respondError(c, http.StatusBadRequest, "Job updates are reported through the job status endpoint")
		return
	}

	if err := msg.Validate(); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInvalidMessage) {
			status = http.StatusBadRequest
		}
		respondError(c, status, err.Error())
		return
	}

	// Reject objects the runner could not decode
	if _, err := msg.DecodeObject(); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	body, err := msg.Encode()
	if err == nil {
		err = h.publisher.PublishWithRetry(c.Request.Context(), body, message.ContentType)
	}
	if err != nil {
		h.logger.Error("Failed to publish event", slog.String("error", err.Error()))
		respondError(c, http.StatusInternalServerError, "Failed to publish event")
		return
	}

	h.logger.Info("Event published",
		slog.String("kind", req.Kind),
		slog.String("object_type", req.ObjectType),
	)
	c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
}
