package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Protocol is a read-only catalog entry describing one recovery activity.
type Protocol struct {
	ID                uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Title             string         `gorm:"not null;column:title" json:"title"`
	DurationMin       int            `gorm:"column:duration_min;not null;default:0" json:"duration_min"`
	Steps             datatypes.JSON `gorm:"type:jsonb;column:steps" json:"steps"`
	Tags              datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags"`
	Equipment         datatypes.JSON `gorm:"type:jsonb;column:equipment" json:"equipment,omitempty"`
	Contraindications datatypes.JSON `gorm:"type:jsonb;column:contraindications" json:"contraindications,omitempty"`
	IsActive          bool           `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreatedBy         *uuid.UUID     `gorm:"type:uuid;column:created_by" json:"created_by,omitempty"`
	CreatedAt         time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt         time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Protocol) TableName() string { return "protocol" }
