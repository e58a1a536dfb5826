package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/repos"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
	"github.com/recoveryplus/recoveryplus-backend/internal/utils"
)

// TrendPoint is one day's value in a trend series.
type TrendPoint struct {
	D string  `json:"d"`
	V float64 `json:"v"`
}

type ReadinessSummary struct {
	Score      int      `json:"score"`
	Delta7d    int      `json:"delta7d"`
	Version    string   `json:"version"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type KeyMetrics struct {
	HRVMs  *float64 `json:"hrvMs"`
	SleepH *float64 `json:"sleepH"`
	RHRBpm *float64 `json:"rhrBpm"`
	Load   *float64 `json:"load"`
}

type PrescriptionSummary struct {
	ProtocolID  uuid.UUID `json:"protocolId"`
	Title       string    `json:"title"`
	DurationMin int       `json:"durationMin"`
}

// Snapshot is the one-call dashboard payload for a single day.
type Snapshot struct {
	Date                string                `json:"date"`
	Readiness           ReadinessSummary      `json:"readiness"`
	KeyMetrics          KeyMetrics            `json:"keyMetrics"`
	Flags               []string              `json:"flags"`
	TodayPrescription   []PrescriptionSummary `json:"todayPrescription"`
	SurveyPromptPending bool                  `json:"surveyPromptPending"`
}

// Trends carries per-dimension day series over a date range.
type Trends struct {
	HRVMs     []TrendPoint `json:"hrvMs"`
	SleepH    []TrendPoint `json:"sleepH"`
	RHRBpm    []TrendPoint `json:"rhrBpm"`
	Load      []TrendPoint `json:"load"`
	Soreness  []TrendPoint `json:"soreness"`
	Stiffness []TrendPoint `json:"stiffness"`
	Reset     []TrendPoint `json:"reset"`
	Readiness []TrendPoint `json:"readiness"`
}

type DashboardService interface {
	// GetSnapshot is read-only and best-effort: a day with no score yet
	// reports the neutral defaults rather than an error.
	GetSnapshot(ctx context.Context, userID uuid.UUID, date time.Time) (*Snapshot, error)
	GetTrends(ctx context.Context, userID uuid.UUID, from, to time.Time) (*Trends, error)
}

type dashboardService struct {
	db            *gorm.DB
	log           *logger.Logger
	scores        repos.ReadinessScoreRepo
	metrics       repos.MetricSampleRepo
	surveys       repos.SessionSurveyRepo
	prescriptions repos.PrescriptionRepo
}

func NewDashboardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	scores repos.ReadinessScoreRepo,
	metrics repos.MetricSampleRepo,
	surveys repos.SessionSurveyRepo,
	prescriptions repos.PrescriptionRepo,
) DashboardService {
	return &dashboardService{
		db:            db,
		log:           baseLog.With("service", "DashboardService"),
		scores:        scores,
		metrics:       metrics,
		surveys:       surveys,
		prescriptions: prescriptions,
	}
}

func (s *dashboardService) GetSnapshot(ctx context.Context, userID uuid.UUID, date time.Time) (*Snapshot, error) {
	var (
		score        *types.ReadinessScore
		weekAgoScore *types.ReadinessScore
		today        []*types.MetricSample
		prescription *types.Prescription
		survey       *types.SessionSurvey
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gerr error
		score, gerr = s.scores.LatestOnOrBefore(gctx, nil, userID, date)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		weekAgoScore, gerr = s.scores.GetByUserDate(gctx, nil, userID, date.AddDate(0, 0, -7), ReadinessVersion())
		return gerr
	})
	g.Go(func() error {
		var gerr error
		today, gerr = s.metrics.GetByUserDate(gctx, nil, userID, date)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		prescription, gerr = s.prescriptions.GetByUserDate(gctx, nil, userID, date)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		survey, gerr = s.surveys.LatestOnDate(gctx, nil, userID, date)
		return gerr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Date: utils.DayString(date),
		Readiness: ReadinessSummary{
			Score:   50,
			Version: ReadinessVersion(),
		},
		Flags:               []string{},
		TodayPrescription:   []PrescriptionSummary{},
		SurveyPromptPending: survey == nil,
	}

	if score != nil {
		snapshot.Readiness.Score = score.Score
		snapshot.Readiness.Version = score.Version
		confidence := score.Confidence
		snapshot.Readiness.Confidence = &confidence
		if weekAgoScore != nil {
			snapshot.Readiness.Delta7d = score.Score - weekAgoScore.Score
		}
	}

	for _, m := range today {
		v := m.Value
		switch m.Kind {
		case types.MetricHRV:
			snapshot.KeyMetrics.HRVMs = &v
		case types.MetricSleepDuration:
			snapshot.KeyMetrics.SleepH = &v
		case types.MetricRHR:
			snapshot.KeyMetrics.RHRBpm = &v
		case types.MetricLoad:
			snapshot.KeyMetrics.Load = &v
		}
	}

	if prescription != nil {
		for _, item := range prescription.Items {
			if item.Protocol == nil {
				continue
			}
			snapshot.TodayPrescription = append(snapshot.TodayPrescription, PrescriptionSummary{
				ProtocolID:  item.Protocol.ID,
				Title:       item.Protocol.Title,
				DurationMin: item.Protocol.DurationMin,
			})
		}
	}

	snapshot.Flags = snapshotFlags(score, snapshot.KeyMetrics)
	return snapshot, nil
}

// snapshotFlags derives the attention banners from the stored score inputs
// and today's raw metrics. Missing inputs simply produce no flag.
func snapshotFlags(score *types.ReadinessScore, metrics KeyMetrics) []string {
	flags := []string{}

	if score != nil && len(score.Components) > 0 {
		var components map[string]float64
		if err := json.Unmarshal(score.Components, &components); err == nil {
			// The hrv component sits below the midpoint exactly when today's
			// value is under the rolling baseline mean.
			if hrv, ok := components["hrv"]; ok && hrv < 0.5 {
				flags = append(flags, "HRV below baseline")
			}
		}
	}
	if score != nil && len(score.Inputs) > 0 {
		var inputs MetricInputs
		if err := json.Unmarshal(score.Inputs, &inputs); err == nil {
			if inputs.Stiffness != nil && *inputs.Stiffness >= 7 {
				flags = append(flags, "Stiffness elevated")
			}
			if inputs.Soreness != nil && *inputs.Soreness >= 7 {
				flags = append(flags, "Soreness elevated")
			}
		}
	}
	if metrics.SleepH != nil && *metrics.SleepH < 6 {
		flags = append(flags, "Insufficient sleep")
	}
	return flags
}

func (s *dashboardService) GetTrends(ctx context.Context, userID uuid.UUID, from, to time.Time) (*Trends, error) {
	var (
		samples []*types.MetricSample
		surveys []*types.SessionSurvey
		scores  []*types.ReadinessScore
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gerr error
		samples, gerr = s.metrics.GetRange(gctx, nil, userID, from, to)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		surveys, gerr = s.surveys.ListRange(gctx, nil, userID, &from, &to, 1000)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		scores, gerr = s.scores.GetRange(gctx, nil, userID, from, to)
		return gerr
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	trends := &Trends{
		HRVMs:     []TrendPoint{},
		SleepH:    []TrendPoint{},
		RHRBpm:    []TrendPoint{},
		Load:      []TrendPoint{},
		Soreness:  []TrendPoint{},
		Stiffness: []TrendPoint{},
		Reset:     []TrendPoint{},
		Readiness: []TrendPoint{},
	}

	for _, m := range samples {
		point := TrendPoint{D: utils.DayString(m.Date), V: m.Value}
		switch m.Kind {
		case types.MetricHRV:
			trends.HRVMs = append(trends.HRVMs, point)
		case types.MetricSleepDuration:
			trends.SleepH = append(trends.SleepH, point)
		case types.MetricRHR:
			trends.RHRBpm = append(trends.RHRBpm, point)
		case types.MetricLoad:
			trends.Load = append(trends.Load, point)
		}
	}

	// ListRange returns newest first; trend series read oldest first.
	for i := len(surveys) - 1; i >= 0; i-- {
		sv := surveys[i]
		day := utils.DayString(sv.SessionAt)
		trends.Stiffness = append(trends.Stiffness, TrendPoint{D: day, V: float64(sv.Stiffness)})
		trends.Soreness = append(trends.Soreness, TrendPoint{D: day, V: float64(sv.Soreness)})
		trends.Reset = append(trends.Reset, TrendPoint{D: day, V: float64(sv.MentalReset)})
	}

	for _, sc := range scores {
		trends.Readiness = append(trends.Readiness, TrendPoint{D: utils.DayString(sc.Date), V: float64(sc.Score)})
	}
	return trends, nil
}
