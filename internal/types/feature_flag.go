package types

import "time"

// FeatureFlag is a process-wide switch polled per pipeline invocation.
type FeatureFlag struct {
	Name      string    `gorm:"primaryKey;column:name" json:"name"`
	Enabled   bool      `gorm:"column:enabled;not null;default:false" json:"enabled"`
	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (FeatureFlag) TableName() string { return "feature_flag" }

// Well-known flag names.
const (
	FlagEnablePrescriptions = "ENABLE_PRESCRIPTIONS"
	FlagEnableSurveyPrompts = "ENABLE_SURVEY_PROMPTS"
	FlagEnableNotifications = "ENABLE_NOTIFICATIONS"
)
