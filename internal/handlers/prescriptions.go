package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/middleware"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

type PrescriptionHandler struct {
	log           *logger.Logger
	prescriptions repos.PrescriptionRepo
}

func NewPrescriptionHandler(baseLog *logger.Logger, prescriptions repos.PrescriptionRepo) *PrescriptionHandler {
	return &PrescriptionHandler{
		log:           baseLog.With("handler", "PrescriptionHandler"),
		prescriptions: prescriptions,
	}
}

func (h *PrescriptionHandler) GetByDate(c *gin.Context) {
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

	prescription, err := h.prescriptions.GetByUserDate(c.Request.Context(), nil, userID, date)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	RespondOK(c, gin.H{"prescription": prescription})
}

// CompleteItem marks one prescription item done. Ownership is enforced in
// the repo query; an item belonging to another user reads as not found.
func (h *PrescriptionHandler) CompleteItem(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	itemID, err := uuid.Parse(c.Param("itemId"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid item id"))
		return
	}

	updated, err := h.prescriptions.MarkItemCompleted(c.Request.Context(), nil, userID, itemID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if !updated {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("prescription item not found"))
		return
	}
	RespondOK(c, gin.H{"completed": true})
}
