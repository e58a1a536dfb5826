package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
)

type Event string

const (
	EventReadinessUpdated    Event = "ReadinessUpdated"
	EventPrescriptionUpdated Event = "PrescriptionUpdated"
	EventSurveyPromptDue     Event = "SurveyPromptDue"
)

// UserChannel is the per-user subscription channel name.
func UserChannel(userID uuid.UUID) string {
	return "user:" + userID.String()
}

type Message struct {
	Channel string `json:"channel"`
	Event   Event  `json:"event"`
	Data    any    `json:"data,omitempty"`
}

type Client struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Channels map[string]bool
	Outbound chan Message
	done     chan struct{}
}

// Hub fans pipeline events out to connected event-stream clients. Messages
// to a client with a full buffer are dropped, never blocked on.
type Hub struct {
	mu            sync.RWMutex
	log           *logger.Logger
	subscriptions map[string]map[*Client]bool
}

func NewHub(baseLog *logger.Logger) *Hub {
	return &Hub{
		log:           baseLog.With("component", "SSEHub"),
		subscriptions: make(map[string]map[*Client]bool),
	}
}

func (h *Hub) NewClient(userID uuid.UUID) *Client {
	return &Client{
		ID:       uuid.New(),
		UserID:   userID,
		Channels: make(map[string]bool),
		Outbound: make(chan Message, 10),
		done:     make(chan struct{}),
	}
}

func (h *Hub) Subscribe(client *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	channel = strings.TrimSpace(channel)
	if channel == "" {
		return
	}
	client.Channels[channel] = true

	clients, ok := h.subscriptions[channel]
	if !ok {
		clients = make(map[*Client]bool)
		h.subscriptions[channel] = clients
	}
	clients[client] = true
	h.log.Debug("SSE client subscribed", "client_id", client.ID, "channel", channel)
}

func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for ch := range client.Channels {
		if subs, ok := h.subscriptions[ch]; ok {
			delete(subs, client)
			if len(subs) == 0 {
				delete(h.subscriptions, ch)
			}
		}
	}
	client.Channels = make(map[string]bool)
	h.log.Debug("SSE client removed", "client_id", client.ID)
}

func (h *Hub) Broadcast(msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if msg.Channel == "" {
		return
	}
	clients, ok := h.subscriptions[msg.Channel]
	if !ok {
		return
	}
	for c := range clients {
		select {
		case c.Outbound <- msg:
		default:
			h.log.Warn("Dropping SSE message; outbound buffer full", "client_id", c.ID)
		}
	}
}

// Publish lets the hub stand in for the cross-instance event bus when none
// is configured. Delivery is local-process only.
func (h *Hub) Publish(_ context.Context, msg Message) error {
	h.Broadcast(msg)
	return nil
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request, client *Client) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	ctx := r.Context()

	heartbeat := time.NewTicker(15 * time.Second)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-client.done:
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case msg := <-client.Outbound:
			raw, err := json.Marshal(msg)
			if err != nil {
				h.log.Warn("Failed to marshal SSE message", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", raw)
			flusher.Flush()
		}
	}
}

func (h *Hub) CloseClient(client *Client) {
	close(client.done)
	h.RemoveClient(client)
	close(client.Outbound)
}
