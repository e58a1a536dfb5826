package jobs

import (
	"fmt"

	"github.com/recoveryplus/recoveryplus-backend/internal/jobs/runtime"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type NotificationPayload struct {
	UserID string `json:"userId"`
	Date   string `json:"date"`
	Kind   string `json:"kind"`
}

// NotificationHandler delivers scheduled nudges, today only the daily survey
// prompt. Delivery is the event bus; there is no push provider integration.
type NotificationHandler struct {
	log      *logger.Logger
	flags    services.FlagService
	notifier services.Notifier
}

func NewNotificationHandler(baseLog *logger.Logger, flags services.FlagService, notifier services.Notifier) *NotificationHandler {
	return &NotificationHandler{
		log:      baseLog.With("handler", "NotificationHandler"),
		flags:    flags,
		notifier: notifier,
	}
}

func (h *NotificationHandler) Queue() string { return types.QueueNotification }

func (h *NotificationHandler) Run(ctx *runtime.Context) (any, error) {
	var payload NotificationPayload
	if err := ctx.DecodeInto(&payload); err != nil {
		return nil, fmt.Errorf("decode notification payload: %w", err)
	}
	userID, ok := ctx.PayloadUUID("userId")
	if !ok {
		return nil, fmt.Errorf("invalid userId in payload")
	}

	snap, err := h.flags.Snapshot(ctx.Ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot flags: %w", err)
	}

	switch payload.Kind {
	case "survey_prompt", "":
		h.notifier.SurveyPromptDue(ctx.Ctx, userID, payload.Date, snap)
	default:
		h.log.Warn("Unknown notification kind", "kind", payload.Kind, "job_id", ctx.Job.ID)
	}
	return map[string]any{"kind": payload.Kind}, nil
}
