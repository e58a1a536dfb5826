package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MetricKind string

const (
	MetricHRV           MetricKind = "HRV"
	MetricSleepDuration MetricKind = "SLEEP_DURATION"
	MetricRHR           MetricKind = "RHR"
	MetricLoad          MetricKind = "LOAD"
	MetricSteps         MetricKind = "STEPS"
	MetricActiveEnergy  MetricKind = "ACTIVE_ENERGY"
)

// ValidMetricKind reports whether k is one of the accepted ingestion kinds.
func ValidMetricKind(k MetricKind) bool {
	switch k {
	case MetricHRV, MetricSleepDuration, MetricRHR, MetricLoad, MetricSteps, MetricActiveEnergy:
		return true
	}
	return false
}

type MetricSource string

const (
	SourceAppleHealth MetricSource = "APPLE_HEALTH"
	SourceManual      MetricSource = "MANUAL"
)

// MetricSample is one physiological sample at day granularity. At most one
// row exists per (user, date, kind, source); re-ingestion upserts in place.
type MetricSample struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	UserID    uuid.UUID      `gorm:"type:uuid;not null;index:idx_metric_sample_key,unique" json:"user_id"`
	User      *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Date      time.Time      `gorm:"column:date;type:date;not null;index:idx_metric_sample_key,unique" json:"date"`
	Kind      MetricKind     `gorm:"column:kind;not null;index:idx_metric_sample_key,unique" json:"kind"`
	Source    MetricSource   `gorm:"column:source;not null;index:idx_metric_sample_key,unique" json:"source"`
	Value     float64        `gorm:"column:value;not null" json:"value"`
	Unit      string         `gorm:"column:unit" json:"unit,omitempty"`
	Metadata  datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (MetricSample) TableName() string { return "metric_sample" }
