package repos

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

func TestMetricSampleUpsert_Idempotent(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	user := createTestUser(t, db)
	repo := NewMetricSampleRepo(db, log)
	ctx := context.Background()

	date := time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC)
	sample := &types.MetricSample{
		ID:     uuid.New(),
		UserID: user.ID,
		Date:   date,
		Kind:   types.MetricHRV,
		Source: types.SourceAppleHealth,
		Value:  62,
		Unit:   "ms",
	}
	if err := repo.Upsert(ctx, nil, sample); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	// Re-ingesting the same key with a new value must update in place.
	again := &types.MetricSample{
		ID:     uuid.New(),
		UserID: user.ID,
		Date:   date,
		Kind:   types.MetricHRV,
		Source: types.SourceAppleHealth,
		Value:  64,
		Unit:   "ms",
	}
	if err := repo.Upsert(ctx, nil, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	rows, err := repo.GetByUserDate(ctx, nil, user.ID, date)
	if err != nil {
		t.Fatalf("get by user date: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after re-ingest got %d", len(rows))
	}
	if rows[0].Value != 64 {
		t.Fatalf("expected last write to win (64) got %v", rows[0].Value)
	}
}

func TestMetricSampleGetKindRange_OrderedAscending(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	user := createTestUser(t, db)
	repo := NewMetricSampleRepo(db, log)
	ctx := context.Background()

	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range []float64{400, 420, 380} {
		sample := &types.MetricSample{
			ID:     uuid.New(),
			UserID: user.ID,
			Date:   base.AddDate(0, 0, i),
			Kind:   types.MetricLoad,
			Source: types.SourceAppleHealth,
			Value:  v,
		}
		if err := repo.Upsert(ctx, nil, sample); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	rows, err := repo.GetKindRange(ctx, nil, user.ID, types.MetricLoad, base, base.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("get kind range: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows got %d", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Date.Before(rows[i-1].Date) {
			t.Fatalf("expected ascending date order")
		}
	}
}
