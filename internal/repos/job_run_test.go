package repos

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"

	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

const testStaleRunning = 60 * time.Second

func TestJobRunClaim_Lifecycle(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	user := createTestUser(t, db)
	repo := NewJobRunRepo(db, log)
	ctx := context.Background()

	job, err := repo.Create(ctx, nil, &types.JobRun{
		OwnerUserID: user.ID,
		Queue:       types.QueueReadiness,
		Status:      types.JobStatusQueued,
		MaxAttempts: 3,
		RunAt:       time.Now().Add(-time.Second),
		Payload:     datatypes.JSON([]byte(`{"userId":"` + user.ID.String() + `","date":"2025-03-09"}`)),
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(ctx, nil, types.QueueReadiness, testStaleRunning)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed == nil || claimed.ID != job.ID {
		t.Fatalf("expected to claim the queued job")
	}
	if claimed.Status != types.JobStatusRunning {
		t.Fatalf("expected running status got %q", claimed.Status)
	}
	if claimed.Attempts != 1 {
		t.Fatalf("expected attempts bumped to 1 got %d", claimed.Attempts)
	}

	// A running job with a fresh heartbeat must not be claimable again.
	second, err := repo.ClaimNextRunnable(ctx, nil, types.QueueReadiness, testStaleRunning)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if second != nil {
		t.Fatalf("expected no runnable job while running, claimed %s", second.ID)
	}

	if err := repo.MarkSucceeded(ctx, nil, job.ID, []byte(`{"score":72}`)); err != nil {
		t.Fatalf("mark succeeded: %v", err)
	}
	done, err := repo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if done.Status != types.JobStatusSucceeded {
		t.Fatalf("expected succeeded got %q", done.Status)
	}
	if len(done.Result) == 0 {
		t.Fatalf("expected result stored")
	}
}

func TestJobRunScheduleRetry_NotDueUntilRunAt(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	user := createTestUser(t, db)
	repo := NewJobRunRepo(db, log)
	ctx := context.Background()

	job, err := repo.Create(ctx, nil, &types.JobRun{
		OwnerUserID: user.ID,
		Queue:       types.QueueIngest,
		Status:      types.JobStatusQueued,
		MaxAttempts: 3,
		RunAt:       time.Now().Add(-time.Second),
		Payload:     datatypes.JSON([]byte(`{}`)),
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(ctx, nil, types.QueueIngest, testStaleRunning)
	if err != nil || claimed == nil {
		t.Fatalf("claim: job=%v err=%v", claimed, err)
	}

	future := time.Now().Add(time.Hour)
	if err := repo.ScheduleRetry(ctx, nil, job.ID, future, "transient failure"); err != nil {
		t.Fatalf("schedule retry: %v", err)
	}

	retried, err := repo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if retried.Status != types.JobStatusQueued {
		t.Fatalf("expected requeued got %q", retried.Status)
	}
	if retried.Error != "transient failure" {
		t.Fatalf("expected error recorded got %q", retried.Error)
	}
	if retried.LockedAt != nil || retried.HeartbeatAt != nil {
		t.Fatalf("expected lock and heartbeat cleared")
	}

	// run_at is in the future, so the queue has nothing due.
	again, err := repo.ClaimNextRunnable(ctx, nil, types.QueueIngest, testStaleRunning)
	if err != nil {
		t.Fatalf("claim after retry: %v", err)
	}
	if again != nil {
		t.Fatalf("expected no job due before run_at")
	}
}

func TestJobRunClaim_ReclaimsStaleRunning(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	user := createTestUser(t, db)
	repo := NewJobRunRepo(db, log)
	ctx := context.Background()

	job, err := repo.Create(ctx, nil, &types.JobRun{
		OwnerUserID: user.ID,
		Queue:       types.QueuePrescription,
		Status:      types.JobStatusQueued,
		MaxAttempts: 3,
		RunAt:       time.Now().Add(-time.Second),
		Payload:     datatypes.JSON([]byte(`{}`)),
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	claimed, err := repo.ClaimNextRunnable(ctx, nil, types.QueuePrescription, testStaleRunning)
	if err != nil || claimed == nil {
		t.Fatalf("claim: job=%v err=%v", claimed, err)
	}

	// Simulate a crashed worker by pushing the heartbeat into the past.
	stale := time.Now().Add(-2 * testStaleRunning)
	if err := db.Model(&types.JobRun{}).Where("id = ?", job.ID).
		Update("heartbeat_at", stale).Error; err != nil {
		t.Fatalf("age heartbeat: %v", err)
	}

	reclaimed, err := repo.ClaimNextRunnable(ctx, nil, types.QueuePrescription, testStaleRunning)
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if reclaimed == nil || reclaimed.ID != job.ID {
		t.Fatalf("expected stale running job to be reclaimed")
	}
	if reclaimed.Attempts != 2 {
		t.Fatalf("expected attempts bumped to 2 got %d", reclaimed.Attempts)
	}
}

func TestJobRunMarkDead(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	user := createTestUser(t, db)
	repo := NewJobRunRepo(db, log)
	ctx := context.Background()

	job, err := repo.Create(ctx, nil, &types.JobRun{
		OwnerUserID: user.ID,
		Queue:       types.QueueNotification,
		Status:      types.JobStatusQueued,
		MaxAttempts: 1,
		RunAt:       time.Now().Add(-time.Second),
		Payload:     datatypes.JSON([]byte(`{}`)),
	})
	if err != nil {
		t.Fatalf("create job: %v", err)
	}

	if _, err := repo.ClaimNextRunnable(ctx, nil, types.QueueNotification, testStaleRunning); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := repo.MarkDead(ctx, nil, job.ID, "handler exploded"); err != nil {
		t.Fatalf("mark dead: %v", err)
	}

	dead, err := repo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if dead.Status != types.JobStatusDead {
		t.Fatalf("expected dead got %q", dead.Status)
	}
	if dead.Error != "handler exploded" {
		t.Fatalf("expected error recorded got %q", dead.Error)
	}

	// Dead jobs never come back.
	if again, err := repo.ClaimNextRunnable(ctx, nil, types.QueueNotification, testStaleRunning); err != nil || again != nil {
		t.Fatalf("expected dead job unclaimed: job=%v err=%v", again, err)
	}
}
