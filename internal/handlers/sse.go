package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/middleware"
	"github.com/recoveryplus/recoveryplus-backend/internal/sse"
)

type SSEHandler struct {
	log *logger.Logger
	hub *sse.Hub
}

func NewSSEHandler(baseLog *logger.Logger, hub *sse.Hub) *SSEHandler {
	return &SSEHandler{
		log: baseLog.With("handler", "SSEHandler"),
		hub: hub,
	}
}

// Stream holds the connection open and pushes the caller's pipeline events.
// Each user is subscribed to their own channel only.
func (h *SSEHandler) Stream(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	client := h.hub.NewClient(userID)
	h.hub.Subscribe(client, sse.UserChannel(userID))
	defer h.hub.CloseClient(client)

	h.hub.ServeHTTP(c.Writer, c.Request, client)
}
