package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// SessionSurvey is a subjective post-session check-in. Rows are immutable; a
// user may submit several per day and only the most recent one on a given
// date participates in readiness and prescription context.
type SessionSurvey struct {
	ID          uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	SessionAt   time.Time      `gorm:"column:session_at;not null;index" json:"session_at"`
	Stiffness   int            `gorm:"column:stiffness;not null" json:"stiffness"`
	Soreness    int            `gorm:"column:soreness;not null" json:"soreness"`
	MentalReset int            `gorm:"column:mental_reset;not null" json:"mental_reset"`
	Notes       string         `gorm:"column:notes" json:"notes,omitempty"`
	Tags        datatypes.JSON `gorm:"type:jsonb;column:tags" json:"tags,omitempty"`
	CreatedAt   time.Time      `gorm:"not null;default:now()" json:"created_at"`
}

func (SessionSurvey) TableName() string { return "session_survey" }
