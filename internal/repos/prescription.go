package repos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type PrescriptionRepo interface {
	// Replace persists the prescription for (user, date), deleting any
	// existing row and its items first so regeneration never appends.
	Replace(ctx context.Context, tx *gorm.DB, prescription *types.Prescription) (*types.Prescription, error)
	// GetByUserDate returns the day's prescription with items (and their
	// protocols) preloaded in item order, or nil when none exists.
	GetByUserDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) (*types.Prescription, error)
	MarkItemCompleted(ctx context.Context, tx *gorm.DB, userID uuid.UUID, itemID uuid.UUID) (bool, error)
}

type prescriptionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPrescriptionRepo(db *gorm.DB, baseLog *logger.Logger) PrescriptionRepo {
	return &prescriptionRepo{db: db, log: baseLog.With("repo", "PrescriptionRepo")}
}

func (r *prescriptionRepo) Replace(ctx context.Context, tx *gorm.DB, prescription *types.Prescription) (*types.Prescription, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if prescription == nil {
		return nil, nil
	}
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var existing types.Prescription
		if err := txx.
			Where("user_id = ? AND date = ?", prescription.UserID, prescription.Date).
			Limit(1).
			Find(&existing).Error; err != nil {
			return err
		}
		if existing.ID != uuid.Nil {
			if err := txx.Delete(&types.PrescriptionItem{}, "prescription_id = ?", existing.ID).Error; err != nil {
				return err
			}
			if err := txx.Delete(&types.Prescription{}, "id = ?", existing.ID).Error; err != nil {
				return err
			}
		}
		return txx.Create(prescription).Error
	})
	if err != nil {
		return nil, err
	}
	return prescription, nil
}

func (r *prescriptionRepo) GetByUserDate(ctx context.Context, tx *gorm.DB, userID uuid.UUID, date time.Time) (*types.Prescription, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var prescription types.Prescription
	err := transaction.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("item_order ASC")
		}).
		Preload("Items.Protocol").
		Where("user_id = ? AND date = ?", userID, date).
		Limit(1).
		Find(&prescription).Error
	if err != nil {
		return nil, err
	}
	if prescription.ID == uuid.Nil {
		return nil, nil
	}
	return &prescription, nil
}

func (r *prescriptionRepo) MarkItemCompleted(ctx context.Context, tx *gorm.DB, userID uuid.UUID, itemID uuid.UUID) (bool, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	res := transaction.WithContext(ctx).
		Model(&types.PrescriptionItem{}).
		Where("id = ? AND prescription_id IN (?)",
			itemID,
			transaction.Model(&types.Prescription{}).Select("id").Where("user_id = ?", userID),
		).
		Updates(map[string]interface{}{
			"completed":    true,
			"completed_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
