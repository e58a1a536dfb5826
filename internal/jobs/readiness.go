package jobs

import (
	"fmt"
	"time"

	"github.com/recoveryplus/recoveryplus-backend/internal/jobs/runtime"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

const prescriptionDelay = 1 * time.Second

// ReadinessPayload is the typed payload for readiness queue jobs.
type ReadinessPayload struct {
	UserID string `json:"userId"`
	Date   string `json:"date"`
}

// ReadinessHandler recomputes the score for one (user, date) and chains a
// prescription job for the same day.
type ReadinessHandler struct {
	log       *logger.Logger
	readiness services.ReadinessService
	jobs      services.JobService
	notifier  services.Notifier
}

func NewReadinessHandler(baseLog *logger.Logger, readiness services.ReadinessService, jobs services.JobService, notifier services.Notifier) *ReadinessHandler {
	return &ReadinessHandler{
		log:       baseLog.With("handler", "ReadinessHandler"),
		readiness: readiness,
		jobs:      jobs,
		notifier:  notifier,
	}
}

func (h *ReadinessHandler) Queue() string { return types.QueueReadiness }

func (h *ReadinessHandler) Run(ctx *runtime.Context) (any, error) {
	var payload ReadinessPayload
	if err := ctx.DecodeInto(&payload); err != nil {
		return nil, fmt.Errorf("decode readiness payload: %w", err)
	}
	userID, ok := ctx.PayloadUUID("userId")
	if !ok {
		return nil, fmt.Errorf("invalid userId in payload")
	}
	date, err := utils.ParseDay(payload.Date)
	if err != nil {
		return nil, err
	}

	score, err := h.readiness.ComputeAndStore(ctx.Ctx, userID, date)
	if err != nil {
		return nil, err
	}

	if h.notifier != nil {
		h.notifier.ReadinessUpdated(ctx.Ctx, userID, payload.Date, score.Score)
	}

	if _, err := h.jobs.Enqueue(ctx.Ctx, nil, userID, types.QueuePrescription, map[string]any{
		"userId": payload.UserID,
		"date":   payload.Date,
	}, &services.EnqueueOptions{Delay: prescriptionDelay}); err != nil {
		h.log.Error("Failed to enqueue prescription job", "user_id", userID, "date", payload.Date, "error", err)
	}

	return map[string]any{
		"score":      score.Score,
		"confidence": score.Confidence,
		"version":    score.Version,
	}, nil
}
