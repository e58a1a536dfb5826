package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Job queue names. One worker pool runs per queue.
const (
	QueueIngest       = "ingest"
	QueueReadiness    = "readiness"
	QueuePrescription = "prescription"
	QueueNotification = "notification"
)

// JobRun statuses. A retryable failure goes back to "queued" with a future
// run_at; "dead" means retries are exhausted and the job is abandoned.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusSucceeded = "succeeded"
	JobStatusDead      = "dead"
)

// JobRun is one unit of pipeline work. Delivery is at least once: a stale
// running row can be reclaimed and re-executed, so every handler must be
// idempotent with respect to its (user, date) key.
type JobRun struct {
	ID             uuid.UUID      `gorm:"type:uuid;default:uuid_generate_v4();primaryKey" json:"id"`
	OwnerUserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Queue          string         `gorm:"column:queue;not null;index" json:"queue"`
	Status         string         `gorm:"column:status;not null;index" json:"status"`
	Attempts       int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	MaxAttempts    int            `gorm:"column:max_attempts;not null;default:3" json:"max_attempts"`
	BackoffSeconds int            `gorm:"column:backoff_seconds;not null;default:2" json:"backoff_seconds"`
	RunAt          time.Time      `gorm:"column:run_at;not null;index" json:"run_at"`
	LockedAt       *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt    *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt    *time.Time     `gorm:"column:last_error_at" json:"last_error_at,omitempty"`
	Error          string         `gorm:"column:error" json:"error,omitempty"`
	Payload        datatypes.JSON `gorm:"type:jsonb;column:payload" json:"payload"`
	Result         datatypes.JSON `gorm:"type:jsonb;column:result" json:"result"`
	CreatedAt      time.Time      `gorm:"not null;default:now();index" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"not null;default:now()" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }
