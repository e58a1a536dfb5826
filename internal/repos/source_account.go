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

type SourceAccountRepo interface {
	// TouchLastSync bumps lastSyncAt for the (user, provider) pair, creating
	// the account row on first sight.
	TouchLastSync(ctx context.Context, tx *gorm.DB, userID uuid.UUID, provider types.MetricSource, at time.Time) error
	GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SourceAccount, error)
}

type sourceAccountRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSourceAccountRepo(db *gorm.DB, baseLog *logger.Logger) SourceAccountRepo {
	return &sourceAccountRepo{db: db, log: baseLog.With("repo", "SourceAccountRepo")}
}

func (r *sourceAccountRepo) TouchLastSync(ctx context.Context, tx *gorm.DB, userID uuid.UUID, provider types.MetricSource, at time.Time) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	account := &types.SourceAccount{
		ID:         uuid.New(),
		UserID:     userID,
		Provider:   provider,
		Status:     "ACTIVE",
		LastSyncAt: &at,
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "provider"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"status", "last_sync_at", "updated_at"}),
		}).
		Create(account).Error
}

func (r *sourceAccountRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) ([]*types.SourceAccount, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.SourceAccount
	if err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
