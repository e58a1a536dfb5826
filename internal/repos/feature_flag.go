package repos

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type FeatureFlagRepo interface {
	GetAll(ctx context.Context, tx *gorm.DB) ([]*types.FeatureFlag, error)
	Upsert(ctx context.Context, tx *gorm.DB, flag *types.FeatureFlag) error
}

type featureFlagRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewFeatureFlagRepo(db *gorm.DB, baseLog *logger.Logger) FeatureFlagRepo {
	return &featureFlagRepo{db: db, log: baseLog.With("repo", "FeatureFlagRepo")}
}

func (r *featureFlagRepo) GetAll(ctx context.Context, tx *gorm.DB) ([]*types.FeatureFlag, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.FeatureFlag
	if err := transaction.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *featureFlagRepo) Upsert(ctx context.Context, tx *gorm.DB, flag *types.FeatureFlag) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if flag == nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"enabled", "updated_at"}),
		}).
		Create(flag).Error
}
