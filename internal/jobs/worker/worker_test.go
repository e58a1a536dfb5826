package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/jobs/runtime"
	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

type heartbeatCountingRepo struct {
	heartbeats atomic.Int64
}

func (r *heartbeatCountingRepo) Create(ctx context.Context, tx *gorm.DB, job *types.JobRun) (*types.JobRun, error) {
	return job, nil
}

func (r *heartbeatCountingRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.JobRun, error) {
	return nil, nil
}

func (r *heartbeatCountingRepo) ClaimNextRunnable(ctx context.Context, tx *gorm.DB, queue string, stale time.Duration) (*types.JobRun, error) {
	return nil, nil
}

func (r *heartbeatCountingRepo) ScheduleRetry(ctx context.Context, tx *gorm.DB, id uuid.UUID, runAt time.Time, jobErr string) error {
	return nil
}

func (r *heartbeatCountingRepo) MarkDead(ctx context.Context, tx *gorm.DB, id uuid.UUID, jobErr string) error {
	return nil
}

func (r *heartbeatCountingRepo) MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID, result []byte) error {
	return nil
}

func (r *heartbeatCountingRepo) Heartbeat(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	r.heartbeats.Add(1)
	return nil
}

func TestHeartbeatLoop_StampsUntilStopped(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	repo := &heartbeatCountingRepo{}
	pool := NewPool(nil, log, repo, runtime.NewRegistry())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		pool.heartbeatLoop(ctx, uuid.New(), 5*time.Millisecond)
		close(done)
	}()

	deadline := time.After(time.Second)
	for repo.heartbeats.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected heartbeats while running, got %d", repo.heartbeats.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("expected heartbeat loop to stop on cancel")
	}
	final := repo.heartbeats.Load()
	time.Sleep(25 * time.Millisecond)
	if got := repo.heartbeats.Load(); got != final {
		t.Fatalf("expected no heartbeats after stop, got %d more", got-final)
	}
}

func TestRetryDelay_ExponentialSchedule(t *testing.T) {
	cases := []struct {
		initialSeconds int
		attempts       int
		want           time.Duration
	}{
		{2, 1, 2 * time.Second},
		{2, 2, 4 * time.Second},
		{2, 3, 8 * time.Second},
		{5, 1, 5 * time.Second},
		{5, 3, 20 * time.Second},
	}
	for _, tc := range cases {
		if got := RetryDelay(tc.initialSeconds, tc.attempts); got != tc.want {
			t.Fatalf("RetryDelay(%d, %d): expected %v got %v", tc.initialSeconds, tc.attempts, tc.want, got)
		}
	}
}

func TestRetryDelay_Defaults(t *testing.T) {
	if got := RetryDelay(0, 1); got != 2*time.Second {
		t.Fatalf("expected default initial 2s got %v", got)
	}
	if got := RetryDelay(2, 0); got != 2*time.Second {
		t.Fatalf("expected attempts floor of 1 got %v", got)
	}
}
