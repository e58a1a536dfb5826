package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type JobRunRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.JobRun) (*types.JobRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error)
	// ClaimNextRunnable atomically claims the oldest due job on the queue:
	// a queued row whose run_at has passed, or a running row whose heartbeat
	// went stale (crashed worker). Claiming bumps attempts and marks the row
	// running. Returns nil when nothing is due.
	ClaimNextRunnable(ctx context.Context, tx *gorm.DB, queue string, staleRunning time.Duration) (*types.JobRun, error)
	// ScheduleRetry returns a failed job to the queue with a future run_at.
	ScheduleRetry(ctx context.Context, tx *gorm.DB, id uuid.UUID, runAt time.Time, jobErr string) error
	// MarkDead abandons a job whose retries are exhausted.
	MarkDead(ctx context.Context, tx *gorm.DB, id uuid.UUID, jobErr string) error
	MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID, result []byte) error
	Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
}

type jobRunRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return &jobRunRepo{db: db, log: baseLog.With("repo", "JobRunRepo")}
}

func (r *jobRunRepo) Create(ctx context.Context, tx *gorm.DB, job *types.JobRun) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if job == nil {
		return nil, nil
	}
	if err := transaction.WithContext(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

func (r *jobRunRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	var job types.JobRun
	err := transaction.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&job).Error
	if err != nil {
		return nil, err
	}
	if job.ID == uuid.Nil {
		return nil, nil
	}
	return &job, nil
}

func (r *jobRunRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, queue string, staleRunning time.Duration) (*types.JobRun, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	staleCutoff := now.Add(-staleRunning)

	var claimed *types.JobRun
	err := transaction.WithContext(ctx).Transaction(func(txx *gorm.DB) error {
		var job types.JobRun
		q := txx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where(`
        queue = ?
        AND (
          (status = ? AND run_at <= ?)
          OR (
            status = ?
            AND heartbeat_at IS NOT NULL
            AND heartbeat_at < ?
          )
        )
      `, queue, types.JobStatusQueued, now, types.JobStatusRunning, staleCutoff).
			Order("run_at ASC")
		qErr := q.First(&job).Error
		if errors.Is(qErr, gorm.ErrRecordNotFound) {
			return nil
		}
		if qErr != nil {
			return qErr
		}
		uErr := txx.Model(&types.JobRun{}).
			Where("id = ?", job.ID).
			Updates(map[string]interface{}{
				"status":       types.JobStatusRunning,
				"attempts":     gorm.Expr("attempts + 1"),
				"locked_at":    now,
				"heartbeat_at": now,
				"updated_at":   now,
			}).Error
		if uErr != nil {
			return uErr
		}
		job.Status = types.JobStatusRunning
		job.Attempts++
		claimed = &job
		return nil
	})
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *jobRunRepo) ScheduleRetry(ctx context.Context, tx *gorm.DB, id uuid.UUID, runAt time.Time, jobErr string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        types.JobStatusQueued,
			"run_at":        runAt,
			"error":         jobErr,
			"last_error_at": now,
			"locked_at":     nil,
			"heartbeat_at":  nil,
			"updated_at":    now,
		}).Error
}

func (r *jobRunRepo) MarkDead(ctx context.Context, tx *gorm.DB, id uuid.UUID, jobErr string) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        types.JobStatusDead,
			"error":         jobErr,
			"last_error_at": now,
			"locked_at":     nil,
			"heartbeat_at":  nil,
			"updated_at":    now,
		}).Error
}

func (r *jobRunRepo) MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID, result []byte) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	updates := map[string]interface{}{
		"status":       types.JobStatusSucceeded,
		"error":        "",
		"locked_at":    nil,
		"heartbeat_at": now,
		"updated_at":   now,
	}
	if len(result) > 0 {
		updates["result"] = result
	}
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *jobRunRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	now := time.Now()
	return transaction.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status = ?", id, types.JobStatusRunning).
		Updates(map[string]interface{}{
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
}
