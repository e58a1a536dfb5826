package repos

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type ProtocolRepo interface {
	GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Protocol, error)
	// ListActiveByTag returns up to limit active protocols whose tag list
	// contains the given tag.
	ListActiveByTag(ctx context.Context, tx *gorm.DB, tag string, limit int) ([]*types.Protocol, error)
	List(ctx context.Context, tx *gorm.DB, activeOnly bool) ([]*types.Protocol, error)
	Create(ctx context.Context, tx *gorm.DB, protocol *types.Protocol) (*types.Protocol, error)
	Update(ctx context.Context, tx *gorm.DB, protocol *types.Protocol) error
}

type protocolRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewProtocolRepo(db *gorm.DB, baseLog *logger.Logger) ProtocolRepo {
	return &protocolRepo{db: db, log: baseLog.With("repo", "ProtocolRepo")}
}

func (r *protocolRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Protocol, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Protocol
	if len(ids) == 0 {
		return out, nil
	}
	if err := transaction.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *protocolRepo) ListActiveByTag(ctx context.Context, tx *gorm.DB, tag string, limit int) ([]*types.Protocol, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if limit <= 0 {
		limit = 5
	}
	needle, err := json.Marshal([]string{tag})
	if err != nil {
		return nil, err
	}
	var out []*types.Protocol
	if err := transaction.WithContext(ctx).
		Where("is_active = ?", true).
		Where("tags @> ?", datatypes.JSON(needle)).
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *protocolRepo) List(ctx context.Context, tx *gorm.DB, activeOnly bool) ([]*types.Protocol, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	q := transaction.WithContext(ctx)
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var out []*types.Protocol
	if err := q.Order("title ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *protocolRepo) Create(ctx context.Context, tx *gorm.DB, protocol *types.Protocol) (*types.Protocol, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(protocol).Error; err != nil {
		return nil, err
	}
	return protocol, nil
}

func (r *protocolRepo) Update(ctx context.Context, tx *gorm.DB, protocol *types.Protocol) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(protocol).Error
}
