package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Prescription is the day's selected recovery protocols for a user. At most
// one row exists per (user, date); regeneration replaces it wholesale. Items
// are mutated externally only to mark completion.
type Prescription struct {
	ID        uuid.UUID          `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID          `gorm:"type:uuid;not null;index:idx_prescription_key,unique" json:"user_id"`
	User      *User              `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Date      time.Time          `gorm:"column:date;type:date;not null;index:idx_prescription_key,unique" json:"date"`
	Reason    string             `gorm:"column:reason" json:"reason"`
	RuleIDs   datatypes.JSON     `gorm:"type:jsonb;column:rule_ids" json:"rule_ids"`
	Inputs    datatypes.JSON     `gorm:"type:jsonb;column:inputs" json:"inputs"`
	Items     []PrescriptionItem `gorm:"constraint:OnDelete:CASCADE;foreignKey:PrescriptionID;references:ID" json:"items,omitempty"`
	CreatedAt time.Time          `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time          `gorm:"not null;default:now()" json:"updated_at"`
}

func (Prescription) TableName() string { return "prescription" }

type PrescriptionItem struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	PrescriptionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"prescription_id"`
	ProtocolID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"protocol_id"`
	Protocol       *Protocol  `gorm:"foreignKey:ProtocolID;references:ID" json:"protocol,omitempty"`
	Order          int        `gorm:"column:item_order;not null;default:0" json:"order"`
	Completed      bool       `gorm:"column:completed;not null;default:false" json:"completed"`
	CompletedAt    *time.Time `gorm:"column:completed_at" json:"completed_at,omitempty"`
	CreatedAt      time.Time  `gorm:"not null;default:now()" json:"created_at"`
}

func (PrescriptionItem) TableName() string { return "prescription_item" }
