package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// ReadinessScore is the daily composite recovery estimate. At most one row
// exists per (user, date, version); recompute overwrites in place.
type ReadinessScore struct {
	ID         uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID     uuid.UUID      `gorm:"type:uuid;not null;index:idx_readiness_key,unique" json:"user_id"`
	User       *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Date       time.Time      `gorm:"column:date;type:date;not null;index:idx_readiness_key,unique" json:"date"`
	Version    string         `gorm:"column:version;not null;index:idx_readiness_key,unique" json:"version"`
	Score      int            `gorm:"column:score;not null" json:"score"`
	Confidence float64        `gorm:"column:confidence;not null" json:"confidence"`
	Inputs     datatypes.JSON `gorm:"type:jsonb;column:inputs" json:"inputs"`
	Weights    datatypes.JSON `gorm:"type:jsonb;column:weights" json:"weights"`
	Components datatypes.JSON `gorm:"type:jsonb;column:components" json:"components"`
	Rationale  string         `gorm:"column:rationale" json:"rationale"`
	CreatedAt  time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (ReadinessScore) TableName() string { return "readiness_score" }
