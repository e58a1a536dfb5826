package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/sse"
)

func TestNotifier_HubAsPublisher(t *testing.T) {
	log := testLogger(t)
	hub := sse.NewHub(log)
	n := NewNotifier(log, hub)

	userID := uuid.New()
	client := hub.NewClient(userID)
	hub.Subscribe(client, sse.UserChannel(userID))
	defer hub.CloseClient(client)

	n.ReadinessUpdated(context.Background(), userID, "2025-03-09", 72)

	select {
	case msg := <-client.Outbound:
		if msg.Event != sse.EventReadinessUpdated {
			t.Fatalf("expected readiness event got %q", msg.Event)
		}
		if msg.Channel != sse.UserChannel(userID) {
			t.Fatalf("expected user channel got %q", msg.Channel)
		}
	default:
		t.Fatalf("expected event delivered through the hub without redis")
	}

	n.PrescriptionUpdated(context.Background(), userID, "2025-03-09", 3)
	select {
	case msg := <-client.Outbound:
		if msg.Event != sse.EventPrescriptionUpdated {
			t.Fatalf("expected prescription event got %q", msg.Event)
		}
	default:
		t.Fatalf("expected prescription event delivered through the hub")
	}
}

func TestNotifier_SurveyPromptGatedOnFlag(t *testing.T) {
	log := testLogger(t)
	hub := sse.NewHub(log)
	n := NewNotifier(log, hub)

	userID := uuid.New()
	client := hub.NewClient(userID)
	hub.Subscribe(client, sse.UserChannel(userID))
	defer hub.CloseClient(client)

	n.SurveyPromptDue(context.Background(), userID, "2025-03-09", FlagSnapshot{NotificationsEnabled: false})
	select {
	case msg := <-client.Outbound:
		t.Fatalf("expected no event with notifications disabled, got %q", msg.Event)
	default:
	}

	n.SurveyPromptDue(context.Background(), userID, "2025-03-09", FlagSnapshot{NotificationsEnabled: true})
	select {
	case msg := <-client.Outbound:
		if msg.Event != sse.EventSurveyPromptDue {
			t.Fatalf("expected survey prompt event got %q", msg.Event)
		}
	default:
		t.Fatalf("expected survey prompt delivered with notifications enabled")
	}
}

func TestNotifier_NilBusDoesNotPanic(t *testing.T) {
	n := NewNotifier(testLogger(t), nil)
	n.ReadinessUpdated(context.Background(), uuid.New(), "2025-03-09", 50)
	n.PrescriptionUpdated(context.Background(), uuid.New(), "2025-03-09", 0)
	n.SurveyPromptDue(context.Background(), uuid.New(), "2025-03-09", FlagSnapshot{NotificationsEnabled: true})
}
