package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type ReadinessScoreRepo interface {
	// Upsert writes the score keyed by (user, date, version), overwriting any
	// previous computation in place.
	Upsert(ctx context.Context, tx *gorm.DB, score *types.ReadinessScore) error
	// LatestOnOrBefore returns the newest score with date <= the given day.
	LatestOnOrBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) (*types.ReadinessScore, error)
	GetByUserDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time, version string) (*types.ReadinessScore, error)
	GetRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.ReadinessScore, error)
}

type readinessScoreRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewReadinessScoreRepo(db *gorm.DB, baseLog *logger.Logger) ReadinessScoreRepo {
	return &readinessScoreRepo{db: db, log: baseLog.With("repo", "ReadinessScoreRepo")}
}

func (r *readinessScoreRepo) Upsert(ctx context.Context, tx *gorm.DB, score *types.ReadinessScore) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if score == nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "date"},
				{Name: "version"},
			},
			DoUpdates: clause.AssignmentColumns([]string{
				"score", "confidence", "inputs", "weights", "components", "rationale", "updated_at",
			}),
		}).
		Create(score).Error
}

func (r *readinessScoreRepo) LatestOnOrBefore(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) (*types.ReadinessScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var score types.ReadinessScore
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND date <= ?", userID, date).
		Order("date DESC").
		Limit(1).
		Find(&score).Error
	if err != nil {
		return nil, err
	}
	if score.ID == uuid.Nil {
		return nil, nil
	}
	return &score, nil
}

func (r *readinessScoreRepo) GetByUserDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time, version string) (*types.ReadinessScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var score types.ReadinessScore
	err := transaction.WithContext(ctx).
		Where("user_id = ? AND date = ? AND version = ?", userID, date, version).
		Limit(1).
		Find(&score).Error
	if err != nil {
		return nil, err
	}
	if score.ID == uuid.Nil {
		return nil, nil
	}
	return &score, nil
}

func (r *readinessScoreRepo) GetRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.ReadinessScore, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.ReadinessScore
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
