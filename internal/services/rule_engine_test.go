package services

import (
	"testing"

	"github.com/google/uuid"

	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

func mustRule(t *testing.T, name string, priority int, conditions []types.RuleCondition, actions []types.RuleAction) *types.Rule {
	t.Helper()
	condJSON, err := types.EncodeConditions(conditions)
	if err != nil {
		t.Fatalf("encode conditions: %v", err)
	}
	actJSON, err := types.EncodeActions(actions)
	if err != nil {
		t.Fatalf("encode actions: %v", err)
	}
	return &types.Rule{
		ID:         uuid.New(),
		Name:       name,
		Enabled:    true,
		Priority:   priority,
		Conditions: condJSON,
		Actions:    actJSON,
	}
}

func TestConditionsMatch_LeftToRightFold(t *testing.T) {
	// (A OR B) AND C with strict left-to-right folding: A false, B true,
	// C false must not match even though B alone is true.
	conditions := []types.RuleCondition{
		{Metric: "readinessScore", Operator: types.OpLT, Value: 40},
		{Metric: "sleepHours", Operator: types.OpLT, Value: 6, Combinator: types.CombinatorOr},
		{Metric: "soreness", Operator: types.OpGTE, Value: 7, Combinator: types.CombinatorAnd},
	}
	evalCtx := EvaluationContext{ReadinessScore: 70, SleepHours: 5, Soreness: 3}

	if conditionsMatch(conditions, evalCtx) {
		t.Fatalf("expected no match: accumulated true AND false")
	}

	evalCtx.Soreness = 8
	if !conditionsMatch(conditions, evalCtx) {
		t.Fatalf("expected match: (false OR true) AND true")
	}
}

func TestConditionsMatch_NoPrecedence(t *testing.T) {
	// A AND B OR C folds as (A AND B) OR C, never A AND (B OR C).
	conditions := []types.RuleCondition{
		{Metric: "readinessScore", Operator: types.OpLT, Value: 40},
		{Metric: "sleepHours", Operator: types.OpLT, Value: 6, Combinator: types.CombinatorAnd},
		{Metric: "soreness", Operator: types.OpGTE, Value: 7, Combinator: types.CombinatorOr},
	}
	evalCtx := EvaluationContext{ReadinessScore: 70, SleepHours: 5, Soreness: 9}

	if !conditionsMatch(conditions, evalCtx) {
		t.Fatalf("expected match: (false AND true) OR true")
	}
}

func TestConditionsMatch_EmptyListNeverMatches(t *testing.T) {
	if conditionsMatch(nil, EvaluationContext{ReadinessScore: 10}) {
		t.Fatalf("empty condition list must never match")
	}
	if conditionsMatch([]types.RuleCondition{}, EvaluationContext{}) {
		t.Fatalf("empty condition list must never match")
	}
}

func TestEvalCondition_Operators(t *testing.T) {
	evalCtx := EvaluationContext{ReadinessScore: 60}
	cases := []struct {
		op    types.ConditionOperator
		value float64
		want  bool
	}{
		{types.OpGT, 59, true},
		{types.OpGT, 60, false},
		{types.OpGTE, 60, true},
		{types.OpLT, 61, true},
		{types.OpLTE, 60, true},
		{types.OpEQ, 60, true},
		{types.OpEQ, 61, false},
		{types.OpNEQ, 61, true},
	}
	for _, tc := range cases {
		cond := types.RuleCondition{Metric: "readinessScore", Operator: tc.op, Value: tc.value}
		if got := evalCondition(cond, evalCtx); got != tc.want {
			t.Fatalf("%s %v: expected %v got %v", tc.op, tc.value, tc.want, got)
		}
	}
}

func TestEvalCondition_UnknownMetricFails(t *testing.T) {
	cond := types.RuleCondition{Metric: "bodyTemperature", Operator: types.OpGT, Value: 0}
	if evalCondition(cond, EvaluationContext{}) {
		t.Fatalf("unknown metric must evaluate false")
	}
}

func TestEvaluateRules_PreservesOrderAndSkipsMalformed(t *testing.T) {
	matchAll := []types.RuleCondition{{Metric: "readinessScore", Operator: types.OpGTE, Value: 0}}
	action := []types.RuleAction{{Type: types.ActionAddProtocol, ProtocolTags: []string{"recovery"}}}

	high := mustRule(t, "high", 100, matchAll, action)
	low := mustRule(t, "low", 10, matchAll, action)
	broken := mustRule(t, "broken", 50, matchAll, action)
	broken.Conditions = []byte(`{not json`)

	matched, errs := EvaluateRules([]*types.Rule{high, broken, low}, EvaluationContext{ReadinessScore: 50})

	if len(errs) != 1 {
		t.Fatalf("expected 1 decode error got %d", len(errs))
	}
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches got %d", len(matched))
	}
	if matched[0].Rule.Name != "high" || matched[1].Rule.Name != "low" {
		t.Fatalf("expected priority order preserved, got %s, %s", matched[0].Rule.Name, matched[1].Rule.Name)
	}
	if len(matched[0].Actions) != 1 || matched[0].Actions[0].Type != types.ActionAddProtocol {
		t.Fatalf("expected decoded actions on match")
	}
}

func TestMetricValue_AllNames(t *testing.T) {
	evalCtx := EvaluationContext{
		ReadinessScore: 1, HRVDeltaPct: 2, SleepHours: 3, SleepDebt24h: 4,
		RHRDeltaPct: 5, AcuteChronic: 6, Stiffness: 7, Soreness: 8, MentalReset: 9,
	}
	cases := map[string]float64{
		"readinessScore": 1, "hrvDeltaPct": 2, "sleepHours": 3, "sleepDebt24h": 4,
		"rhrDeltaPct": 5, "acuteChronic": 6, "stiffness": 7, "soreness": 8, "mentalReset": 9,
	}
	for name, want := range cases {
		got, ok := evalCtx.MetricValue(name)
		if !ok || got != want {
			t.Fatalf("metric %s: expected %v got %v ok=%v", name, want, got, ok)
		}
	}
	if _, ok := evalCtx.MetricValue("unknown"); ok {
		t.Fatalf("unknown metric must return ok=false")
	}
}
