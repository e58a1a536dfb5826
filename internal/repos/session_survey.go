package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type SessionSurveyRepo interface {
	Create(ctx context.Context, tx *gorm.DB, survey *types.SessionSurvey) (*types.SessionSurvey, error)
	// LatestOnDate returns the most recent survey whose sessionAt falls on
	// the given calendar day, or nil when none exists.
	LatestOnDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) (*types.SessionSurvey, error)
	ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to *time.Time, limit int) ([]*types.SessionSurvey, error)
}

type sessionSurveyRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSessionSurveyRepo(db *gorm.DB, baseLog *logger.Logger) SessionSurveyRepo {
	return &sessionSurveyRepo{db: db, log: baseLog.With("repo", "SessionSurveyRepo")}
}

func (r *sessionSurveyRepo) Create(ctx context.Context, tx *gorm.DB, survey *types.SessionSurvey) (*types.SessionSurvey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(survey).Error; err != nil {
		return nil, err
	}
	return survey, nil
}

func (r *sessionSurveyRepo) LatestOnDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) (*types.SessionSurvey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	dayEnd := dayStart.Add(24 * time.Hour)

	var survey types.SessionSurvey
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND session_at >= ? AND session_at < ?", userID, dayStart, dayEnd).
		Order("session_at DESC").
		Limit(1).
		Find(&survey).Error
	if err != nil {
		return nil, err
	}
	if survey.ID == uuid.Nil {
		return nil, nil
	}
	return &survey, nil
}

func (r *sessionSurveyRepo) ListRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to *time.Time, limit int) ([]*types.SessionSurvey, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx).Where("user_id = ?", userID)
	if from != nil {
		q = q.Where("session_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("session_at <= ?", *to)
	}
	if limit <= 0 {
		limit = 50
	}
	var out []*types.SessionSurvey
	if err := q.Order("session_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
