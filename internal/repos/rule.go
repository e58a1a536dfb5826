package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type RuleRepo interface {
	// ListEnabled returns enabled rules ordered by descending priority, the
	// order the evaluation engine consumes them in.
	ListEnabled(ctx context.Context, tx *gorm.DB) ([]*types.Rule, error)
	List(ctx context.Context, tx *gorm.DB) ([]*types.Rule, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Rule, error)
	Create(ctx context.Context, tx *gorm.DB, rule *types.Rule) (*types.Rule, error)
	Update(ctx context.Context, tx *gorm.DB, rule *types.Rule) error
	Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type ruleRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRuleRepo(db *gorm.DB, baseLog *logger.Logger) RuleRepo {
	return &ruleRepo{db: db, log: baseLog.With("repo", "RuleRepo")}
}

func (r *ruleRepo) ListEnabled(ctx context.Context, tx *gorm.DB) ([]*types.Rule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Rule
	if err := transaction.WithContext(ctx).
		Where("enabled = ?", true).
		Order("priority DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ruleRepo) List(ctx context.Context, tx *gorm.DB) ([]*types.Rule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var out []*types.Rule
	if err := transaction.WithContext(ctx).
		Order("priority DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ruleRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Rule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var rule types.Rule
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&rule).Error
	if err != nil {
		return nil, err
	}
	if rule.ID == uuid.Nil {
		return nil, nil
	}
	return &rule, nil
}

func (r *ruleRepo) Create(ctx context.Context, tx *gorm.DB, rule *types.Rule) (*types.Rule, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if err := transaction.WithContext(ctx).Create(rule).Error; err != nil {
		return nil, err
	}
	return rule, nil
}

func (r *ruleRepo) Update(ctx context.Context, tx *gorm.DB, rule *types.Rule) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Save(rule).Error
}

func (r *ruleRepo) Delete(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	return transaction.WithContext(ctx).Delete(&types.Rule{}, "id = ?", id).Error
}
