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

type MetricSampleRepo interface {
	// Upsert writes one sample keyed by (user, date, kind, source). A
	// conflicting row is updated in place; rows are never duplicated.
	Upsert(ctx context.Context, tx *gorm.DB, sample *types.MetricSample) error
	GetByUserDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) ([]*types.MetricSample, error)
	// GetRange returns samples with from <= date <= to, ordered by date asc.
	GetRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.MetricSample, error)
	// GetKindRange is GetRange restricted to a single metric kind.
	GetKindRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind types.MetricKind, from, to time.Time) ([]*types.MetricSample, error)
}

type metricSampleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMetricSampleRepo(db *gorm.DB, baseLog *logger.Logger) MetricSampleRepo {
	return &metricSampleRepo{db: db, log: baseLog.With("repo", "MetricSampleRepo")}
}

func (r *metricSampleRepo) Upsert(ctx context.Context, tx *gorm.DB, sample *types.MetricSample) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if sample == nil {
		return nil
	}
	return transaction.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "user_id"},
				{Name: "date"},
				{Name: "kind"},
				{Name: "source"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"value", "unit", "metadata", "updated_at"}),
		}).
		Create(sample).Error
}

func (r *metricSampleRepo) GetByUserDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) ([]*types.MetricSample, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MetricSample
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *metricSampleRepo) GetRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, from, to time.Time) ([]*types.MetricSample, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MetricSample
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *metricSampleRepo) GetKindRange(ctx context.Context, tx *gorm.DB, userID uuid.UUID, kind types.MetricKind, from, to time.Time) ([]*types.MetricSample, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.MetricSample
	if err := transaction.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND date >= ? AND date <= ?", userID, kind, from, to).
		Order("date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
