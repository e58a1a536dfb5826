package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/middleware"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

type DashboardHandler struct {
	log       *logger.Logger
	dashboard services.DashboardService
}

func NewDashboardHandler(baseLog *logger.Logger, dashboard services.DashboardService) *DashboardHandler {
	return &DashboardHandler{
		log:       baseLog.With("handler", "DashboardHandler"),
		dashboard: dashboard,
	}
}

func (h *DashboardHandler) Snapshot(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	date := utils.DayOf(time.Now())
	if s := c.Query("date"); s != "" {
		parsed, err := utils.ParseDay(s)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		date = parsed
	}

	snapshot, err := h.dashboard.GetSnapshot(c.Request.Context(), userID, date)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"apiVersion": "1.0", "snapshot": snapshot})
}

func (h *DashboardHandler) Trends(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	from, err := utils.ParseDay(c.Query("from"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid from date"))
		return
	}
	to, err := utils.ParseDay(c.Query("to"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid to date"))
		return
	}
	if to.Before(from) {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("to before from"))
		return
	}

	trends, err := h.dashboard.GetTrends(c.Request.Context(), userID, from, to)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"apiVersion": "1.0", "series": trends})
}
