package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

func TestFeatureFlagUpsert(t *testing.T) {
	db := openTestDB(t)
	log := newTestLogger(t)
	repo := NewFeatureFlagRepo(db, log)
	ctx := context.Background()

	name := "TEST_FLAG_" + uuid.NewString()
	t.Cleanup(func() {
		db.Exec(`DELETE FROM feature_flag WHERE name = ?`, name)
	})

	if err := repo.Upsert(ctx, nil, &types.FeatureFlag{Name: name, Enabled: true}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if err := repo.Upsert(ctx, nil, &types.FeatureFlag{Name: name, Enabled: false}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	flags, err := repo.GetAll(ctx, nil)
	if err != nil {
		t.Fatalf("get all: %v", err)
	}
	seen := 0
	for _, f := range flags {
		if f.Name == name {
			seen++
			if f.Enabled {
				t.Fatalf("expected flip to disabled to win")
			}
		}
	}
	if seen != 1 {
		t.Fatalf("expected exactly one row for %s got %d", name, seen)
	}
}
