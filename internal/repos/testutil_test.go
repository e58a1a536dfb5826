package repos

import (
	"os"
	"testing"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

// openTestDB connects to the database named by TEST_POSTGRES_DSN and skips
// the test when it is unset, so the suite stays green without a database.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping integration test")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		t.Fatalf("connect to test postgres: %v", err)
	}
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		t.Fatalf("enable uuid-ossp: %v", err)
	}
	if err := db.AutoMigrate(
		&types.User{},
		&types.MetricSample{},
		&types.SessionSurvey{},
		&types.ReadinessScore{},
		&types.Rule{},
		&types.Protocol{},
		&types.Prescription{},
		&types.PrescriptionItem{},
		&types.FeatureFlag{},
		&types.SourceAccount{},
		&types.JobRun{},
	); err != nil {
		t.Fatalf("migrate test schema: %v", err)
	}
	return db
}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

// createTestUser inserts a throwaway user and registers cleanup for it and
// everything cascading from it.
func createTestUser(t *testing.T, db *gorm.DB) *types.User {
	t.Helper()
	user := &types.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@test.local",
		PasswordHash: "x",
		Name:         "Test User",
		Role:         types.RoleAthlete,
		Sport:        types.SportGeneral,
		Timezone:     "UTC",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create test user: %v", err)
	}
	t.Cleanup(func() {
		db.Exec(`DELETE FROM job_run WHERE owner_user_id = ?`, user.ID)
		db.Exec(`DELETE FROM prescription_item WHERE prescription_id IN (SELECT id FROM prescription WHERE user_id = ?)`, user.ID)
		db.Exec(`DELETE FROM prescription WHERE user_id = ?`, user.ID)
		db.Exec(`DELETE FROM readiness_score WHERE user_id = ?`, user.ID)
		db.Exec(`DELETE FROM session_survey WHERE user_id = ?`, user.ID)
		db.Exec(`DELETE FROM metric_sample WHERE user_id = ?`, user.ID)
		db.Exec(`DELETE FROM source_account WHERE user_id = ?`, user.ID)
		db.Exec(`DELETE FROM "user" WHERE id = ?`, user.ID)
	})
	return user
}
