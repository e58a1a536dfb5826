package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
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
	maxProtocolsPerPrescription = 5
	tagResolutionLimit          = 5
	sleepTargetHours            = 8.0
)

type PrescriptionEngine interface {
	// Generate builds the day's prescription for (user, date) and replaces any
	// existing one. Returns nil without side effects when prescriptions are
	// disabled in the flag snapshot, and nil when no protocol is selected; a
	// day with nothing to prescribe is a no-op, not an error.
	Generate(ctx context.Context, userID uuid.UUID, date time.Time, flags FlagSnapshot) (*types.Prescription, error)
}

type prescriptionEngine struct {
	db            *gorm.DB
	log           *logger.Logger
	scores        repos.ReadinessScoreRepo
	metrics       repos.MetricSampleRepo
	surveys       repos.SessionSurveyRepo
	rules         repos.RuleRepo
	protocols     repos.ProtocolRepo
	prescriptions repos.PrescriptionRepo
}

func NewPrescriptionEngine(
	db *gorm.DB,
	baseLog *logger.Logger,
	scores repos.ReadinessScoreRepo,
	metrics repos.MetricSampleRepo,
	surveys repos.SessionSurveyRepo,
	rules repos.RuleRepo,
	protocols repos.ProtocolRepo,
	prescriptions repos.PrescriptionRepo,
) PrescriptionEngine {
	return &prescriptionEngine{
		db:            db,
		log:           baseLog.With("service", "PrescriptionEngine"),
		scores:        scores,
		metrics:       metrics,
		surveys:       surveys,
		rules:         rules,
		protocols:     protocols,
		prescriptions: prescriptions,
	}
}

func (e *prescriptionEngine) Generate(ctx context.Context, userID uuid.UUID, date time.Time, flags FlagSnapshot) (*types.Prescription, error) {
	if !flags.PrescriptionsEnabled {
		e.log.Info("Prescriptions disabled by feature flag", "user_id", userID, "date", date.Format("2006-01-02"))
		return nil, nil
	}

	evalCtx, err := e.buildContext(ctx, userID, date)
	if err != nil {
		return nil, fmt.Errorf("build evaluation context: %w", err)
	}

	enabled, err := e.rules.ListEnabled(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("list enabled rules: %w", err)
	}
	matched, evalErrs := EvaluateRules(enabled, evalCtx)
	for _, evalErr := range evalErrs {
		e.log.Warn("Skipping malformed rule", "error", evalErr)
	}

	protocolIDs, err := e.selectProtocols(ctx, matched)
	if err != nil {
		return nil, fmt.Errorf("select protocols: %w", err)
	}
	if len(protocolIDs) == 0 {
		e.log.Info("No prescriptions generated", "user_id", userID, "date", date.Format("2006-01-02"))
		return nil, nil
	}

	ruleIDs := make([]uuid.UUID, 0, len(matched))
	for _, m := range matched {
		ruleIDs = append(ruleIDs, m.Rule.ID)
	}
	ruleIDsJSON, _ := json.Marshal(ruleIDs)
	inputsJSON, _ := json.Marshal(evaluationContextJSON(evalCtx))

	items := make([]types.PrescriptionItem, 0, len(protocolIDs))
	for i, pid := range protocolIDs {
		items = append(items, types.PrescriptionItem{
			ID:         uuid.New(),
			ProtocolID: pid,
			Order:      i,
		})
	}

	prescription := &types.Prescription{
		ID:      uuid.New(),
		UserID:  userID,
		Date:    date,
		Reason:  prescriptionReason(matched, evalCtx),
		RuleIDs: datatypes.JSON(ruleIDsJSON),
		Inputs:  datatypes.JSON(inputsJSON),
		Items:   items,
	}
	for i := range prescription.Items {
		prescription.Items[i].PrescriptionID = prescription.ID
	}

	if _, err := e.prescriptions.Replace(ctx, nil, prescription); err != nil {
		return nil, fmt.Errorf("persist prescription: %w", err)
	}

	e.log.Info("Prescription generated",
		"user_id", userID,
		"date", date.Format("2006-01-02"),
		"prescription_id", prescription.ID,
		"protocols", len(protocolIDs),
		"rules", len(matched),
	)
	return prescription, nil
}

// buildContext assembles the rule evaluation context from the latest score,
// the trailing metric window, and the day's survey. Anything missing gets a
// neutral default (readiness 50, survey fields 5, deltas 0) so rules always
// see a fully populated context.
func (e *prescriptionEngine) buildContext(ctx context.Context, userID uuid.UUID, date time.Time) (EvaluationContext, error) {
	var (
		score  *types.ReadinessScore
		window []*types.MetricSample
		loads  []*types.MetricSample
		survey *types.SessionSurvey
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var gerr error
		score, gerr = e.scores.LatestOnOrBefore(gctx, nil, userID, date)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		window, gerr = e.metrics.GetRange(gctx, nil, userID, date.AddDate(0, 0, -baselineWindowDays), date)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		loads, gerr = e.metrics.GetKindRange(gctx, nil, userID, types.MetricLoad, date.AddDate(0, 0, -loadWindowDays), date)
		return gerr
	})
	g.Go(func() error {
		var gerr error
		survey, gerr = e.surveys.LatestOnDate(gctx, nil, userID, date)
		return gerr
	})
	if err := g.Wait(); err != nil {
		return EvaluationContext{}, err
	}

	evalCtx := EvaluationContext{
		ReadinessScore: 50,
		Stiffness:      5,
		Soreness:       5,
		MentalReset:    5,
		AcuteChronic:   AcuteChronicRatio(loadValues(loads)),
	}
	if score != nil {
		evalCtx.ReadinessScore = float64(score.Score)
	}
	if survey != nil {
		evalCtx.Stiffness = float64(survey.Stiffness)
		evalCtx.Soreness = float64(survey.Soreness)
		evalCtx.MentalReset = float64(survey.MentalReset)
	}

	var todayHRV, todayRHR float64
	var priorHRV, priorRHR []float64
	for _, m := range window {
		sameDay := m.Date.Equal(date)
		switch m.Kind {
		case types.MetricHRV:
			if sameDay {
				todayHRV = m.Value
			} else {
				priorHRV = append(priorHRV, m.Value)
			}
		case types.MetricRHR:
			if sameDay {
				todayRHR = m.Value
			} else {
				priorRHR = append(priorRHR, m.Value)
			}
		case types.MetricSleepDuration:
			if sameDay {
				evalCtx.SleepHours = m.Value
			}
		}
	}

	evalCtx.HRVDeltaPct = deltaPct(todayHRV, Mean(priorHRV))
	evalCtx.RHRDeltaPct = deltaPct(todayRHR, Mean(priorRHR))
	evalCtx.SleepDebt24h = math.Max(0, sleepTargetHours-evalCtx.SleepHours)
	return evalCtx, nil
}

func deltaPct(today, baseline float64) float64 {
	if today == 0 || baseline == 0 {
		return 0
	}
	return (today - baseline) / baseline * 100
}

// selectProtocols collects explicit protocol ids from matched actions, then
// resolves tag references against the active catalog (at most 5 hits per
// tag). The combined set is deduplicated in first-seen order and truncated to
// 5 total.
func (e *prescriptionEngine) selectProtocols(ctx context.Context, matched []MatchedRule) ([]uuid.UUID, error) {
	seen := map[uuid.UUID]bool{}
	var ordered []uuid.UUID
	add := func(id uuid.UUID) {
		if !seen[id] {
			seen[id] = true
			ordered = append(ordered, id)
		}
	}

	tagSeen := map[string]bool{}
	var tags []string
	for _, m := range matched {
		for _, action := range m.Actions {
			if action.Type != types.ActionAddProtocol {
				continue
			}
			for _, id := range action.ProtocolIDs {
				add(id)
			}
			for _, tag := range action.ProtocolTags {
				if !tagSeen[tag] {
					tagSeen[tag] = true
					tags = append(tags, tag)
				}
			}
		}
	}

	for _, tag := range tags {
		protocols, err := e.protocols.ListActiveByTag(ctx, nil, tag, tagResolutionLimit)
		if err != nil {
			return nil, err
		}
		for _, p := range protocols {
			add(p.ID)
		}
	}

	if len(ordered) > maxProtocolsPerPrescription {
		ordered = ordered[:maxProtocolsPerPrescription]
	}
	return ordered, nil
}

// prescriptionReason explains why the day's protocols were chosen. Threshold
// checks on the context come first; when none fire, the matched rule names
// stand in, and a rule-less prescription falls back to a generic line.
func prescriptionReason(matched []MatchedRule, evalCtx EvaluationContext) string {
	if len(matched) == 0 {
		return "Standard recovery protocol"
	}

	var reasons []string
	if evalCtx.HRVDeltaPct < -10 {
		reasons = append(reasons, "HRV below baseline")
	}
	if evalCtx.SleepHours < 6 {
		reasons = append(reasons, "Insufficient sleep")
	}
	if evalCtx.Stiffness >= 7 || evalCtx.Soreness >= 7 {
		reasons = append(reasons, "Elevated muscle tension")
	}
	if evalCtx.ReadinessScore < 60 {
		reasons = append(reasons, "Low readiness score")
	}
	if len(reasons) > 0 {
		return strings.Join(reasons, ", ")
	}

	names := make([]string, 0, len(matched))
	for _, m := range matched {
		names = append(names, m.Rule.Name)
	}
	return "Based on " + strings.Join(names, ", ")
}

// evaluationContextJSON is the audit-trail shape persisted on the
// prescription row, matching the context field names rules reference.
func evaluationContextJSON(c EvaluationContext) map[string]float64 {
	return map[string]float64{
		"readinessScore": c.ReadinessScore,
		"hrvDeltaPct":    c.HRVDeltaPct,
		"sleepHours":     c.SleepHours,
		"sleepDebt24h":   c.SleepDebt24h,
		"rhrDeltaPct":    c.RHRDeltaPct,
		"acuteChronic":   c.AcuteChronic,
		"stiffness":      c.Stiffness,
		"soreness":       c.Soreness,
		"mentalReset":    c.MentalReset,
	}
}
