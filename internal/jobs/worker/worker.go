package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/jobs/runtime"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

const (
	defaultConcurrency = 5
	pollInterval       = 1 * time.Second
	staleRunning       = 10 * time.Minute
	heartbeatInterval  = 30 * time.Second
)

// Pool runs one worker pool per registered queue. Each pool polls for due
// jobs up to its concurrency limit; there is no coordination across queues.
type Pool struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
}

func NewPool(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry) *Pool {
	return &Pool{
		db:       db,
		log:      baseLog.With("component", "JobWorkerPool"),
		repo:     repo,
		registry: registry,
	}
}

func (p *Pool) Start(ctx context.Context) {
	concurrency := utils.GetEnvAsInt("WORKER_CONCURRENCY", defaultConcurrency, p.log)
	if concurrency < 1 {
		concurrency = 1
	}
	for _, queue := range p.registry.Queues() {
		p.log.Info("Starting worker pool", "queue", queue, "concurrency", concurrency)
		for i := 0; i < concurrency; i++ {
			go p.runLoop(ctx, queue, i+1)
		}
	}
}

func (p *Pool) runLoop(ctx context.Context, queue string, workerID int) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.log.Info("Worker loop stopped", "queue", queue, "worker_id", workerID)
			return
		case <-ticker.C:
			job, err := p.repo.ClaimNextRunnable(ctx, nil, queue, staleRunning)
			if err != nil {
				p.log.Warn("ClaimNextRunnable failed", "queue", queue, "worker_id", workerID, "error", err)
				continue
			}
			if job == nil {
				continue
			}
			p.execute(ctx, queue, workerID, job)
		}
	}
}

func (p *Pool) execute(ctx context.Context, queue string, workerID int, job *types.JobRun) {
	h, ok := p.registry.Get(queue)
	if !ok {
		// Registry and claim loop disagree; treat as permanent.
		p.log.Error("No handler registered for queue", "queue", queue, "job_id", job.ID)
		p.finish(ctx, job, nil, fmt.Errorf("no handler registered for queue=%s", queue))
		return
	}

	start := time.Now()
	jc := runtime.NewContext(ctx, p.db, job)

	hbCtx, stopHeartbeat := context.WithCancel(ctx)
	go p.heartbeatLoop(hbCtx, job.ID, heartbeatInterval)

	var result any
	var runErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("Job handler panic",
					"queue", queue,
					"worker_id", workerID,
					"job_id", job.ID,
					"panic", r,
				)
				runErr = fmt.Errorf("panic: %v", r)
			}
		}()
		result, runErr = h.Run(jc)
	}()
	stopHeartbeat()

	p.log.Debug("Job finished", "queue", queue, "job_id", job.ID, "duration_ms", time.Since(start).Milliseconds(), "error", runErr)
	p.finish(ctx, job, result, runErr)
}

// heartbeatLoop stamps the running job while its handler executes so a live
// job is never mistaken for a crashed worker's and reclaimed.
func (p *Pool) heartbeatLoop(ctx context.Context, jobID uuid.UUID, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.repo.Heartbeat(ctx, nil, jobID); err != nil {
				p.log.Warn("Heartbeat failed", "job_id", jobID, "error", err)
			}
		}
	}
}

func (p *Pool) finish(ctx context.Context, job *types.JobRun, result any, runErr error) {
	if runErr == nil {
		var raw []byte
		if result != nil {
			raw, _ = json.Marshal(result)
		}
		if err := p.repo.MarkSucceeded(ctx, nil, job.ID, raw); err != nil {
			p.log.Warn("MarkSucceeded failed", "job_id", job.ID, "error", err)
		}
		return
	}

	if job.Attempts >= job.MaxAttempts {
		p.log.Error("Job failed after all attempts; abandoning",
			"queue", job.Queue,
			"job_id", job.ID,
			"owner_user_id", job.OwnerUserID,
			"attempts", job.Attempts,
			"error", runErr,
		)
		if err := p.repo.MarkDead(ctx, nil, job.ID, runErr.Error()); err != nil {
			p.log.Warn("MarkDead failed", "job_id", job.ID, "error", err)
		}
		return
	}

	delay := RetryDelay(job.BackoffSeconds, job.Attempts)
	runAt := time.Now().Add(delay)
	p.log.Warn("Job failed; scheduling retry",
		"queue", job.Queue,
		"job_id", job.ID,
		"attempts", job.Attempts,
		"max_attempts", job.MaxAttempts,
		"retry_in", delay,
		"error", runErr,
	)
	if err := p.repo.ScheduleRetry(ctx, nil, job.ID, runAt, runErr.Error()); err != nil {
		p.log.Warn("ScheduleRetry failed", "job_id", job.ID, "error", err)
	}
}

// RetryDelay is the exponential backoff schedule: the Nth failed attempt
// waits initial * 2^(n-1). With the 2s default that is 2s, 4s, 8s, ...
func RetryDelay(initialSeconds int, attempts int) time.Duration {
	if initialSeconds <= 0 {
		initialSeconds = 2
	}
	if attempts < 1 {
		attempts = 1
	}
	d := time.Duration(initialSeconds) * time.Second
	for i := 1; i < attempts; i++ {
		d *= 2
	}
	return d
}
