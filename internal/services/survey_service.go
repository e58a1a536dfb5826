package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/apperr"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

// Recompute after a survey waits a beat longer than after a metric ingest so
// a burst of survey-plus-sync traffic settles into one recompute.
const surveyRecomputeDelay = 5 * time.Second

// SurveyInput is a subjective check-in as submitted. Scale fields are 1-10.
type SurveyInput struct {
	SessionAt   time.Time `json:"sessionAt"`
	Stiffness   int       `json:"stiffness"`
	Soreness    int       `json:"soreness"`
	MentalReset int       `json:"mentalReset"`
	Notes       string    `json:"notes,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

type SurveyService interface {
	// Submit persists the survey and schedules a readiness recompute for the
	// session's calendar day. Surveys are immutable; resubmission appends.
	Submit(ctx context.Context, userID uuid.UUID, input SurveyInput) (*types.SessionSurvey, error)
	History(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit int) ([]*types.SessionSurvey, error)
}

type surveyService struct {
	db      *gorm.DB
	log     *logger.Logger
	surveys repos.SessionSurveyRepo
	jobs    JobService
}

func NewSurveyService(db *gorm.DB, baseLog *logger.Logger, surveys repos.SessionSurveyRepo, jobs JobService) SurveyService {
	return &surveyService{
		db:      db,
		log:     baseLog.With("service", "SurveyService"),
		surveys: surveys,
		jobs:    jobs,
	}
}

func (s *surveyService) Submit(ctx context.Context, userID uuid.UUID, input SurveyInput) (*types.SessionSurvey, error) {
	if err := validateSurvey(input); err != nil {
		return nil, err
	}
	sessionAt := input.SessionAt
	if sessionAt.IsZero() {
		sessionAt = time.Now()
	}

	survey := &types.SessionSurvey{
		ID:          uuid.New(),
		UserID:      userID,
		SessionAt:   sessionAt,
		Stiffness:   input.Stiffness,
		Soreness:    input.Soreness,
		MentalReset: input.MentalReset,
		Notes:       input.Notes,
	}
	if len(input.Tags) > 0 {
		tagsJSON, err := json.Marshal(input.Tags)
		if err == nil {
			survey.Tags = datatypes.JSON(tagsJSON)
		}
	}

	created, err := s.surveys.Create(ctx, nil, survey)
	if err != nil {
		return nil, fmt.Errorf("persist survey: %w", err)
	}

	day := utils.DayString(sessionAt)
	if _, err := s.jobs.Enqueue(ctx, nil, userID, types.QueueReadiness, map[string]any{
		"userId": userID.String(),
		"date":   day,
	}, &EnqueueOptions{Delay: surveyRecomputeDelay}); err != nil {
		// The survey row is already durable; the next ingest or manual
		// recompute will pick the data up.
		s.log.Error("Failed to enqueue readiness recompute after survey",
			"user_id", userID, "date", day, "error", err)
	}

	s.log.Info("Survey submitted", "user_id", userID, "survey_id", created.ID, "date", day)
	return created, nil
}

func (s *surveyService) History(ctx context.Context, userID uuid.UUID, from, to *time.Time, limit int) ([]*types.SessionSurvey, error) {
	return s.surveys.ListRange(ctx, nil, userID, from, to, limit)
}

func validateSurvey(input SurveyInput) error {
	for _, f := range []struct {
		name  string
		value int
	}{
		{"stiffness", input.Stiffness},
		{"soreness", input.Soreness},
		{"mentalReset", input.MentalReset},
	} {
		if f.value < 1 || f.value > 10 {
			return fmt.Errorf("%w: %s must be between 1 and 10", apperr.ErrInvalidArgument, f.name)
		}
	}
	return nil
}
