package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/middleware"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

type SurveyHandler struct {
	log     *logger.Logger
	surveys services.SurveyService
}

func NewSurveyHandler(baseLog *logger.Logger, surveys services.SurveyService) *SurveyHandler {
	return &SurveyHandler{
		log:     baseLog.With("handler", "SurveyHandler"),
		surveys: surveys,
	}
}

func (h *SurveyHandler) Submit(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	var input services.SurveyInput
	if err := c.ShouldBindJSON(&input); err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", err)
		return
	}
	survey, err := h.surveys.Submit(c.Request.Context(), userID, input)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusCreated, survey)
}

func (h *SurveyHandler) History(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	var from, to *time.Time
	if s := c.Query("from"); s != "" {
		t, err := utils.ParseDay(s)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		from = &t
	}
	if s := c.Query("to"); s != "" {
		t, err := utils.ParseDay(s)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "bad_request", err)
			return
		}
		end := t.Add(24 * time.Hour)
		to = &end
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	surveys, err := h.surveys.History(c.Request.Context(), userID, from, to, limit)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"surveys": surveys})
}
