package jobs

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/jobs/runtime"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

// A short settle delay lets several same-day samples from one sync collapse
// into fewer recomputes; the last one wins regardless.
const readinessRecomputeDelay = 2 * time.Second

// IngestHandler drains the ingest queue: each job carries one provider batch.
// After storing the samples it schedules a readiness recompute per affected
// calendar day.
type IngestHandler struct {
	log    *logger.Logger
	ingest services.IngestService
	jobs   services.JobService
}

func NewIngestHandler(baseLog *logger.Logger, ingest services.IngestService, jobs services.JobService) *IngestHandler {
	return &IngestHandler{
		log:    baseLog.With("handler", "IngestHandler"),
		ingest: ingest,
		jobs:   jobs,
	}
}

func (h *IngestHandler) Queue() string { return types.QueueIngest }

func (h *IngestHandler) Run(ctx *runtime.Context) (any, error) {
	var batch services.IngestBatch
	if err := ctx.DecodeInto(&batch); err != nil {
		return nil, fmt.Errorf("decode ingest payload: %w", err)
	}
	if batch.UserID == uuid.Nil {
		batch.UserID = ctx.Job.OwnerUserID
	}

	result, err := h.ingest.ProcessBatch(ctx.Ctx, batch)
	if err != nil {
		return nil, err
	}

	for _, day := range result.AffectedDates {
		if _, err := h.jobs.Enqueue(ctx.Ctx, nil, batch.UserID, types.QueueReadiness, map[string]any{
			"userId": batch.UserID.String(),
			"date":   day,
		}, &services.EnqueueOptions{Delay: readinessRecomputeDelay}); err != nil {
			h.log.Error("Failed to enqueue readiness job", "user_id", batch.UserID, "date", day, "error", err)
		}
	}
	return result, nil
}
