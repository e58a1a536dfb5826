package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/middleware"
	"github.com/recoveryplus/recoveryplus-backend/internal/services"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type JobsHandler struct {
	log  *logger.Logger
	jobs services.JobService
}

func NewJobsHandler(baseLog *logger.Logger, jobs services.JobService) *JobsHandler {
	return &JobsHandler{
		log:  baseLog.With("handler", "JobsHandler"),
		jobs: jobs,
	}
}

// GetStatus exposes one job run for polling. Users only see their own jobs;
// admins see everything.
func (h *JobsHandler) GetStatus(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	jobID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "bad_request", fmt.Errorf("invalid job id"))
		return
	}

	job, err := h.jobs.GetByID(c.Request.Context(), nil, jobID)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	if job == nil {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("job not found"))
		return
	}
	role, _ := c.Get(middleware.CtxRole)
	if job.OwnerUserID != userID && role != types.RoleAdmin {
		RespondError(c, http.StatusNotFound, "not_found", fmt.Errorf("job not found"))
		return
	}

	RespondOK(c, gin.H{
		"id":       job.ID,
		"queue":    job.Queue,
		"status":   job.Status,
		"attempts": job.Attempts,
		"runAt":    job.RunAt,
		"result":   job.Result,
		"error":    job.Error,
	})
}
