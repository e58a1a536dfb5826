package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/sse"
)

// EventPublisher pushes a message onto the event bus. The redis-backed bus
// satisfies this, as does the SSE hub directly when no bus is configured;
// a nil publisher degrades to log-only.
type EventPublisher interface {
	Publish(ctx context.Context, msg sse.Message) error
}

type Notifier interface {
	ReadinessUpdated(ctx context.Context, userID uuid.UUID, date string, score int)
	PrescriptionUpdated(ctx context.Context, userID uuid.UUID, date string, protocols int)
	// SurveyPromptDue delivers the daily check-in nudge. Gated on the
	// notifications flag; the others always flow since the dashboard depends
	// on them.
	SurveyPromptDue(ctx context.Context, userID uuid.UUID, date string, flags FlagSnapshot)
}

type notifier struct {
	log *logger.Logger
	bus EventPublisher
}

func NewNotifier(baseLog *logger.Logger, bus EventPublisher) Notifier {
	return &notifier{log: baseLog.With("service", "Notifier"), bus: bus}
}

func (n *notifier) ReadinessUpdated(ctx context.Context, userID uuid.UUID, date string, score int) {
	n.publish(ctx, sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   sse.EventReadinessUpdated,
		Data:    map[string]any{"date": date, "score": score},
	})
}

func (n *notifier) PrescriptionUpdated(ctx context.Context, userID uuid.UUID, date string, protocols int) {
	n.publish(ctx, sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   sse.EventPrescriptionUpdated,
		Data:    map[string]any{"date": date, "protocols": protocols},
	})
}

func (n *notifier) SurveyPromptDue(ctx context.Context, userID uuid.UUID, date string, flags FlagSnapshot) {
	if !flags.NotificationsEnabled {
		n.log.Debug("Notifications disabled; skipping survey prompt", "user_id", userID, "date", date)
		return
	}
	n.publish(ctx, sse.Message{
		Channel: sse.UserChannel(userID),
		Event:   sse.EventSurveyPromptDue,
		Data:    map[string]any{"date": date},
	})
	n.log.Info("Survey prompt sent", "user_id", userID, "date", date)
}

func (n *notifier) publish(ctx context.Context, msg sse.Message) {
	if n.bus == nil {
		n.log.Debug("No event bus configured; dropping event", "event", msg.Event, "channel", msg.Channel)
		return
	}
	if err := n.bus.Publish(ctx, msg); err != nil {
		n.log.Warn("Failed to publish event", "event", msg.Event, "error", err)
	}
}
