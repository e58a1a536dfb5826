package services

import (
	"fmt"

	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

// EvaluationContext is the flat metric namespace rule conditions reference.
// Every field always holds a value; callers substitute neutral defaults for
// anything that could not be loaded.
type EvaluationContext struct {
	ReadinessScore float64
	HRVDeltaPct    float64
	SleepHours     float64
	SleepDebt24h   float64
	RHRDeltaPct    float64
	AcuteChronic   float64
	Stiffness      float64
	Soreness       float64
	MentalReset    float64
}

// MetricValue resolves a condition's metric name. Unknown names return
// ok=false, which fails the whole rule rather than silently passing it.
func (c EvaluationContext) MetricValue(name string) (float64, bool) {
	switch name {
	case "readinessScore":
		return c.ReadinessScore, true
	case "hrvDeltaPct":
		return c.HRVDeltaPct, true
	case "sleepHours":
		return c.SleepHours, true
	case "sleepDebt24h":
		return c.SleepDebt24h, true
	case "rhrDeltaPct":
		return c.RHRDeltaPct, true
	case "acuteChronic":
		return c.AcuteChronic, true
	case "stiffness":
		return c.Stiffness, true
	case "soreness":
		return c.Soreness, true
	case "mentalReset":
		return c.MentalReset, true
	default:
		return 0, false
	}
}

// MatchedRule pairs a rule that fired with its decoded actions.
type MatchedRule struct {
	Rule    *types.Rule
	Actions []types.RuleAction
}

// EvaluateRules runs every enabled rule against the context and returns the
// ones that matched, preserving the priority order the repo layer produced.
// A rule whose conditions or actions fail to decode is skipped, not fatal:
// one malformed admin-edited rule must not block the rest of the set.
func EvaluateRules(rules []*types.Rule, evalCtx EvaluationContext) ([]MatchedRule, []error) {
	var matched []MatchedRule
	var errs []error

	for _, rule := range rules {
		conditions, err := rule.DecodeConditions()
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: decode conditions: %w", rule.ID, err))
			continue
		}
		if !conditionsMatch(conditions, evalCtx) {
			continue
		}
		actions, err := rule.DecodeActions()
		if err != nil {
			errs = append(errs, fmt.Errorf("rule %s: decode actions: %w", rule.ID, err))
			continue
		}
		matched = append(matched, MatchedRule{Rule: rule, Actions: actions})
	}
	return matched, errs
}

// conditionsMatch folds conditions strictly left to right. Each condition's
// combinator joins it with the accumulated result so far; there is no
// operator precedence. An empty condition list never matches.
func conditionsMatch(conditions []types.RuleCondition, evalCtx EvaluationContext) bool {
	if len(conditions) == 0 {
		return false
	}
	result := evalCondition(conditions[0], evalCtx)
	for _, cond := range conditions[1:] {
		current := evalCondition(cond, evalCtx)
		if cond.Combinator == types.CombinatorOr {
			result = result || current
		} else {
			result = result && current
		}
	}
	return result
}

func evalCondition(cond types.RuleCondition, evalCtx EvaluationContext) bool {
	value, ok := evalCtx.MetricValue(cond.Metric)
	if !ok {
		return false
	}
	switch cond.Operator {
	case types.OpGT:
		return value > cond.Value
	case types.OpGTE:
		return value >= cond.Value
	case types.OpLT:
		return value < cond.Value
	case types.OpLTE:
		return value <= cond.Value
	case types.OpEQ:
		return value == cond.Value
	case types.OpNEQ:
		return value != cond.Value
	default:
		return false
	}
}
