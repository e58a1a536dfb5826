package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

// FlagSnapshot is a point-in-time read of the feature flags, taken once per
// pipeline invocation and passed down explicitly. Engines never look flags up
// ambiently, which keeps them pure and testable; staleness up to the previous
// poll is acceptable.
type FlagSnapshot struct {
	PrescriptionsEnabled bool
	SurveyPromptsEnabled bool
	NotificationsEnabled bool
}

type FlagService interface {
	Snapshot(ctx context.Context, tx *gorm.DB) (FlagSnapshot, error)
	Set(ctx context.Context, tx *gorm.DB, name string, enabled bool) error
	List(ctx context.Context, tx *gorm.DB) ([]*types.FeatureFlag, error)
}

type flagService struct {
	db   *gorm.DB
	log  *logger.Logger
	repo repos.FeatureFlagRepo
}

func NewFlagService(db *gorm.DB, baseLog *logger.Logger, repo repos.FeatureFlagRepo) FlagService {
	return &flagService{db: db, log: baseLog.With("service", "FlagService"), repo: repo}
}

func (s *flagService) Snapshot(ctx context.Context, tx *gorm.DB) (FlagSnapshot, error) {
	// Unknown flags default to enabled prescriptions/prompts and disabled
	// notifications, matching the seeded defaults.
	snap := FlagSnapshot{
		PrescriptionsEnabled: true,
		SurveyPromptsEnabled: true,
		NotificationsEnabled: false,
	}
	flags, err := s.repo.GetAll(ctx, tx)
	if err != nil {
		return snap, err
	}
	for _, f := range flags {
		switch f.Name {
		case types.FlagEnablePrescriptions:
			snap.PrescriptionsEnabled = f.Enabled
		case types.FlagEnableSurveyPrompts:
			snap.SurveyPromptsEnabled = f.Enabled
		case types.FlagEnableNotifications:
			snap.NotificationsEnabled = f.Enabled
		}
	}
	return snap, nil
}

func (s *flagService) Set(ctx context.Context, tx *gorm.DB, name string, enabled bool) error {
	return s.repo.Upsert(ctx, tx, &types.FeatureFlag{Name: name, Enabled: enabled})
}

func (s *flagService) List(ctx context.Context, tx *gorm.DB) ([]*types.FeatureFlag, error) {
	return s.repo.GetAll(ctx, tx)
}
