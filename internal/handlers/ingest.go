package handlers

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

// IngestHandler terminates the provider webhook. It validates the shared
// token, accepts the batch, and hands it to the ingest queue; samples are
// stored asynchronously.
type IngestHandler struct {
	log          *logger.Logger
	jobs         services.JobService
	webhookToken string
}

func NewIngestHandler(baseLog *logger.Logger, jobs services.JobService, webhookToken string) *IngestHandler {
	return &IngestHandler{
		log:          baseLog.With("handler", "IngestHandler"),
		jobs:         jobs,
		webhookToken: webhookToken,
	}
}

type ingestWebhookBody struct {
	UserID    string                 `json:"userId"`
	Source    types.MetricSource     `json:"source,omitempty"`
	Timestamp *time.Time             `json:"timestamp,omitempty"`
	Metrics   []services.MetricEntry `json:"metrics"`
}

func (h *IngestHandler) Webhook(c *gin.Context) {
	token := c.GetHeader("X-Webhook-Token")
	if h.webhookToken == "" || subtle.ConstantTimeCompare([]byte(token), []byte(h.webhookToken)) != 1 {
		RespondError(c, http.StatusUnauthorized, "unauthorized", fmt.Errorf("invalid webhook token"))
		return
	}

	var body ingestWebhookBody
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	userID, err := uuid.Parse(body.UserID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid userId"))
		return
	}
	if len(body.Metrics) == 0 {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("empty metrics batch"))
		return
	}

	timestamp := time.Now()
	if body.Timestamp != nil {
		timestamp = *body.Timestamp
	}
	payload := map[string]any{
		"userId":    body.UserID,
		"source":    body.Source,
		"timestamp": timestamp,
		"metrics":   body.Metrics,
	}
	job, err := h.jobs.Enqueue(c.Request.Context(), nil, userID, types.QueueIngest, payload, nil)
	if err != nil {
		RespondAppError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"accepted": len(body.Metrics),
		"jobId":    job.ID,
	})
}
