package jobs

import (
	"fmt"

	"github.com/recoveryplus/recoveryplus-backend/internal/jobs/runtime"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

type PrescriptionPayload struct {
	UserID string `json:"userId"`
	Date   string `json:"date"`
}

// PrescriptionHandler regenerates the day's prescription. Feature flags are
// snapshotted per run, never cached; staleness up to the previous run is
// acceptable.
type PrescriptionHandler struct {
	log      *logger.Logger
	engine   services.PrescriptionEngine
	flags    services.FlagService
	notifier services.Notifier
}

func NewPrescriptionHandler(baseLog *logger.Logger, engine services.PrescriptionEngine, flags services.FlagService, notifier services.Notifier) *PrescriptionHandler {
	return &PrescriptionHandler{
		log:      baseLog.With("handler", "PrescriptionHandler"),
		engine:   engine,
		flags:    flags,
		notifier: notifier,
	}
}

func (h *PrescriptionHandler) Queue() string { return types.QueuePrescription }

func (h *PrescriptionHandler) Run(ctx *runtime.Context) (any, error) {
	var payload PrescriptionPayload
	if err := ctx.DecodeInto(&payload); err != nil {
		return nil, fmt.Errorf("decode prescription payload: %w", err)
	}
	userID, ok := ctx.PayloadUUID("userId")
	if !ok {
		return nil, fmt.Errorf("invalid userId in payload")
	}
	date, err := utils.ParseDay(payload.Date)
	if err != nil {
		return nil, err
	}

	snap, err := h.flags.Snapshot(ctx.Ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot flags: %w", err)
	}

	prescription, err := h.engine.Generate(ctx.Ctx, userID, date, snap)
	if err != nil {
		return nil, err
	}
	if prescription == nil {
		return map[string]any{"generated": false}, nil
	}

	if h.notifier != nil {
		h.notifier.PrescriptionUpdated(ctx.Ctx, userID, payload.Date, len(prescription.Items))
	}
	return map[string]any{
		"generated":      true,
		"prescriptionId": prescription.ID.String(),
		"protocols":      len(prescription.Items),
	}, nil
}
