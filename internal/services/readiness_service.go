package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

const (
	baselineWindowDays   = 7
	loadWindowDays       = 30
	acuteWindowSamples   = 7
	chronicWindowSamples = 28
)

type ReadinessService interface {
	// ComputeAndStore recomputes the readiness score for (user, date) from
	// whatever samples exist right now and upserts it in place. Safe to run
	// repeatedly and concurrently for the same key; last write wins.
	ComputeAndStore(ctx context.Context, userID uuid.UUID, date time.Time) (*types.ReadinessScore, error)
}

type readinessService struct {
	db      *gorm.DB
	log     *logger.Logger
	users   repos.UserRepo
	metrics repos.MetricSampleRepo
	surveys repos.SessionSurveyRepo
	scores  repos.ReadinessScoreRepo
}

func NewReadinessService(
	db *gorm.DB,
	baseLog *logger.Logger,
	users repos.UserRepo,
	metrics repos.MetricSampleRepo,
	surveys repos.SessionSurveyRepo,
	scores repos.ReadinessScoreRepo,
) ReadinessService {
	return &readinessService{
		db:      db,
		log:     baseLog.With("service", "ReadinessService"),
		users:   users,
		metrics: metrics,
		surveys: surveys,
		scores:  scores,
	}
}

func (s *readinessService) ComputeAndStore(ctx context.Context, userID uuid.UUID, date time.Time) (*types.ReadinessScore, error) {
	user, err := s.users.GetByID(ctx, nil, userID)
	if err != nil {
		return nil, fmt.Errorf("fetch user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("user not found: %s", userID)
	}

	var (
		today    []*types.MetricSample
		window   []*types.MetricSample
		loads    []*types.MetricSample
		survey   *types.SessionSurvey
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gerr error
		today, gerr = s.metrics.GetByUserDate(gctx, nil, userID, date)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		window, gerr = s.metrics.GetRange(gctx, nil, userID, date.AddDate(0, 0, -baselineWindowDays), date.AddDate(0, 0, -1))
		return gerr
	})
	g.Go(func() error {
		var gerr error
		loads, gerr = s.metrics.GetKindRange(gctx, nil, userID, types.MetricLoad, date.AddDate(0, 0, -loadWindowDays), date)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		survey, gerr = s.surveys.LatestOnDate(gctx, nil, userID, date)
		return gerr
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fetch readiness inputs: %w", err)
	}

	inputs := buildMetricInputs(today, survey)
	baseline := buildBaseline(window)
	acuteChronic := AcuteChronicRatio(loadValues(loads))

	weights, err := WeightsForSport(user.Sport)
	if err != nil {
		return nil, fmt.Errorf("load weights: %w", err)
	}

	result := ComputeReadiness(inputs, baseline, acuteChronic, weights)

	inputsJSON, _ := json.Marshal(inputs)
	weightsJSON, _ := json.Marshal(weights)
	componentsJSON, _ := json.Marshal(result.Components)

	score := &types.ReadinessScore{
		ID:         uuid.New(),
		UserID:     userID,
		Date:       date,
		Version:    ReadinessVersion(),
		Score:      result.Score,
		Confidence: result.Confidence,
		Inputs:     datatypes.JSON(inputsJSON),
		Weights:    datatypes.JSON(weightsJSON),
		Components: datatypes.JSON(componentsJSON),
		Rationale:  result.Rationale,
	}
	if err := s.scores.Upsert(ctx, nil, score); err != nil {
		return nil, fmt.Errorf("upsert readiness score: %w", err)
	}

	s.log.Info("Readiness score calculated",
		"user_id", userID,
		"date", date.Format("2006-01-02"),
		"score", result.Score,
		"confidence", result.Confidence,
	)
	return score, nil
}

func buildMetricInputs(today []*types.MetricSample, survey *types.SessionSurvey) MetricInputs {
	var inputs MetricInputs
	for _, m := range today {
		v := m.Value
		switch m.Kind {
		case types.MetricHRV:
			inputs.HRVMs = &v
		case types.MetricSleepDuration:
			inputs.SleepH = &v
		case types.MetricRHR:
			inputs.RHRBpm = &v
		case types.MetricLoad:
			inputs.Load = &v
		}
	}
	if survey != nil {
		stiffness, soreness, reset := survey.Stiffness, survey.Soreness, survey.MentalReset
		inputs.Stiffness = &stiffness
		inputs.Soreness = &soreness
		inputs.MentalReset = &reset
	}
	return inputs
}

func buildBaseline(window []*types.MetricSample) Baseline {
	byKind := map[types.MetricKind][]float64{}
	for _, m := range window {
		byKind[m.Kind] = append(byKind[m.Kind], m.Value)
	}
	return Baseline{
		HRVMean:   Mean(byKind[types.MetricHRV]),
		HRVStd:    StdDev(byKind[types.MetricHRV]),
		SleepMean: Mean(byKind[types.MetricSleepDuration]),
		SleepStd:  StdDev(byKind[types.MetricSleepDuration]),
		RHRMean:   Mean(byKind[types.MetricRHR]),
		RHRStd:    StdDev(byKind[types.MetricRHR]),
		LoadMean:  Mean(byKind[types.MetricLoad]),
		LoadStd:   StdDev(byKind[types.MetricLoad]),
	}
}

func loadValues(loads []*types.MetricSample) []float64 {
	out := make([]float64, 0, len(loads))
	for _, m := range loads {
		out = append(out, m.Value)
	}
	return out
}

// AcuteChronicRatio divides the mean of the last 7 load samples by the mean
// of the last 28, over samples ordered oldest first. Fewer than 7 samples
// yields the neutral 1.0: sparse load history is deliberately treated as
// neutral training load rather than an error.
func AcuteChronicRatio(loads []float64) float64 {
	if len(loads) < acuteWindowSamples {
		return 1.0
	}
	acute := Mean(loads[len(loads)-acuteWindowSamples:])
	chronicFrom := 0
	if len(loads) > chronicWindowSamples {
		chronicFrom = len(loads) - chronicWindowSamples
	}
	chronic := Mean(loads[chronicFrom:])
	if chronic <= 0 {
		return 1.0
	}
	return acute / chronic
}
