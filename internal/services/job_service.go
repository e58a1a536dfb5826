package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

const (
	defaultMaxAttempts    = 3
	defaultBackoffSeconds = 2
)

// EnqueueOptions tune delivery for a single job. Zero values fall back to
// the queue defaults (no delay, 3 attempts, 2s initial backoff).
type EnqueueOptions struct {
	Delay          time.Duration
	MaxAttempts    int
	BackoffSeconds int
}

type JobService interface {
	// Enqueue persists a job on the named queue. With a Delay the job stays
	// invisible to workers until run_at passes.
	Enqueue(ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID, queue string, payload map[string]any, opts *EnqueueOptions) (*types.JobRun, error)
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error)
}

type jobService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.JobRunRepo
}

func NewJobService(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo) JobService {
	return &jobService{db: db, log: baseLog.With("service", "JobService"), repo: repo}
}

func (s *jobService) Enqueue(ctx context.Context, tx *gorm.DB, ownerUserID uuid.UUID, queue string, payload map[string]any, opts *EnqueueOptions) (*types.JobRun, error) {
	if ownerUserID == uuid.Nil {
		return nil, fmt.Errorf("missing owner_user_id")
	}
	if queue == "" {
		return nil, fmt.Errorf("missing queue")
	}
	if payload == nil {
		payload = map[string]any{}
	}
	if opts == nil {
		opts = &EnqueueOptions{}
	}
	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}
	backoff := opts.BackoffSeconds
	if backoff <= 0 {
		backoff = defaultBackoffSeconds
	}

	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}

	now := time.Now()
	job := &types.JobRun{
		ID:             uuid.New(),
		OwnerUserID:    ownerUserID,
		Queue:          queue,
		Status:         types.JobStatusQueued,
		Attempts:       0,
		MaxAttempts:    maxAttempts,
		BackoffSeconds: backoff,
		RunAt:          now.Add(opts.Delay),
		Payload:        datatypes.JSON(b),
		Result:         datatypes.JSON([]byte(`{}`)),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if _, err := s.repo.Create(ctx, tx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	s.log.Debug("Job enqueued", "job_id", job.ID, "queue", queue, "run_at", job.RunAt)
	return job, nil
}

func (s *jobService) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error) {
	return s.repo.GetByID(ctx, tx, id)
}
