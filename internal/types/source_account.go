package types

import (
	"time"

	"github.com/google/uuid"
)

// SourceAccount tracks the link between a user and an external metric
// provider; lastSyncAt is bumped on every successful ingest batch.
type SourceAccount struct {
	ID         uuid.UUID    `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID    `gorm:"type:uuid;not null;index:idx_source_account_key,unique" json:"user_id"`
	User       *User        `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Provider   MetricSource `gorm:"column:provider;not null;index:idx_source_account_key,unique" json:"provider"`
	Status     string       `gorm:"column:status;not null;default:'ACTIVE'" json:"status"`
	LastSyncAt *time.Time   `gorm:"column:last_sync_at" json:"last_sync_at,omitempty"`
	CreatedAt  time.Time    `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time    `gorm:"not null;default:now()" json:"updated_at"`
}

func (SourceAccount) TableName() string { return "source_account" }
