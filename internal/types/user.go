package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAthlete Role = "ATHLETE"
	RoleAdmin   Role = "ADMIN"
)

type Sport string

const (
	SportGeneral Sport = "GENERAL"
	SportRunning Sport = "RUNNING"
	SportCycling Sport = "CYCLING"
)

type User struct {
	ID           uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	Email        string         `gorm:"uniqueIndex;not null;column:email" json:"email"`
	PasswordHash string         `gorm:"not null;column:password_hash" json:"-"`
	Name         string         `gorm:"not null;column:name" json:"name"`
	Role         Role           `gorm:"column:role;not null;default:'ATHLETE'" json:"role"`
	Sport        Sport          `gorm:"column:sport;not null;default:'GENERAL'" json:"sport"`
	Timezone     string         `gorm:"column:timezone;not null;default:'UTC'" json:"timezone"`
	CreatedAt    time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (User) TableName() string { return "user" }
