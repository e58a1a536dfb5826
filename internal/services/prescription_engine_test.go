package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/recoveryplus/recoveryplus-backend/internal/logger"
	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("init logger: %v", err)
	}
	return log
}

type fakeProtocolRepo struct {
	byTag map[string][]*types.Protocol
	calls []string
}

func (f *fakeProtocolRepo) GetByIDs(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) ([]*types.Protocol, error) {
	return nil, nil
}

func (f *fakeProtocolRepo) ListActiveByTag(ctx context.Context, tx *gorm.DB, tag string, limit int) ([]*types.Protocol, error) {
	f.calls = append(f.calls, tag)
	out := f.byTag[tag]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeProtocolRepo) List(ctx context.Context, tx *gorm.DB, activeOnly bool) ([]*types.Protocol, error) {
	return nil, nil
}

func (f *fakeProtocolRepo) Create(ctx context.Context, tx *gorm.DB, protocol *types.Protocol) (*types.Protocol, error) {
	return protocol, nil
}

func (f *fakeProtocolRepo) Update(ctx context.Context, tx *gorm.DB, protocol *types.Protocol) error {
	return nil
}

func TestGenerate_DisabledFlagShortCircuits(t *testing.T) {
	// With prescriptions disabled nothing downstream may be touched; nil
	// repos would panic if the engine went any further.
	e := &prescriptionEngine{log: testLogger(t)}

	prescription, err := e.Generate(context.Background(), uuid.New(), time.Now(), FlagSnapshot{PrescriptionsEnabled: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prescription != nil {
		t.Fatalf("expected nil prescription when disabled")
	}
}

func TestSelectProtocols_DedupAndCap(t *testing.T) {
	shared := uuid.New()
	tagOnly := uuid.New()
	fake := &fakeProtocolRepo{byTag: map[string][]*types.Protocol{
		"recovery": {
			{ID: shared},
			{ID: tagOnly},
		},
	}}
	e := &prescriptionEngine{log: testLogger(t), protocols: fake}

	explicit := []uuid.UUID{shared, uuid.New(), uuid.New()}
	matched := []MatchedRule{
		{
			Rule: &types.Rule{ID: uuid.New(), Name: "a"},
			Actions: []types.RuleAction{
				{Type: types.ActionAddProtocol, ProtocolIDs: explicit},
				{Type: types.ActionAddProtocol, ProtocolTags: []string{"recovery", "recovery"}},
			},
		},
	}

	ids, err := e.selectProtocols(context.Background(), matched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// shared appears once, explicit ids keep first-seen order, tag-resolved
	// ids follow.
	if len(ids) != 4 {
		t.Fatalf("expected 4 unique ids got %d", len(ids))
	}
	for i, want := range append(explicit, tagOnly) {
		if ids[i] != want {
			t.Fatalf("position %d: expected %s got %s", i, want, ids[i])
		}
	}
	if len(fake.calls) != 1 {
		t.Fatalf("expected each tag resolved once, got calls %v", fake.calls)
	}
}

func TestSelectProtocols_TruncatesToFive(t *testing.T) {
	e := &prescriptionEngine{log: testLogger(t), protocols: &fakeProtocolRepo{}}

	var explicit []uuid.UUID
	for range [8]int{} {
		explicit = append(explicit, uuid.New())
	}
	matched := []MatchedRule{{
		Rule:    &types.Rule{ID: uuid.New(), Name: "a"},
		Actions: []types.RuleAction{{Type: types.ActionAddProtocol, ProtocolIDs: explicit}},
	}}

	ids, err := e.selectProtocols(context.Background(), matched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 5 {
		t.Fatalf("expected cap at 5 got %d", len(ids))
	}
}

func TestSelectProtocols_IgnoresUnknownActionTypes(t *testing.T) {
	e := &prescriptionEngine{log: testLogger(t), protocols: &fakeProtocolRepo{}}
	matched := []MatchedRule{{
		Rule:    &types.Rule{ID: uuid.New(), Name: "a"},
		Actions: []types.RuleAction{{Type: "send_email", ProtocolIDs: []uuid.UUID{uuid.New()}}},
	}}

	ids, err := e.selectProtocols(context.Background(), matched)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected no protocols from unknown action type got %d", len(ids))
	}
}

func TestPrescriptionReason(t *testing.T) {
	matched := []MatchedRule{
		{Rule: &types.Rule{Name: "Low readiness recovery block"}},
		{Rule: &types.Rule{Name: "Elevated muscle tension"}},
	}

	reason := prescriptionReason(matched, EvaluationContext{
		HRVDeltaPct:    -15,
		SleepHours:     5,
		Stiffness:      8,
		ReadinessScore: 45,
	})
	want := "HRV below baseline, Insufficient sleep, Elevated muscle tension, Low readiness score"
	if reason != want {
		t.Fatalf("expected %q got %q", want, reason)
	}

	// No threshold fires: fall back to the matched rule names.
	reason = prescriptionReason(matched, EvaluationContext{
		HRVDeltaPct: 5, SleepHours: 8, Stiffness: 3, Soreness: 3, ReadinessScore: 80,
	})
	want = "Based on Low readiness recovery block, Elevated muscle tension"
	if reason != want {
		t.Fatalf("expected %q got %q", want, reason)
	}

	if got := prescriptionReason(nil, EvaluationContext{}); got != "Standard recovery protocol" {
		t.Fatalf("expected fallback reason got %q", got)
	}
}

func TestDeltaPct(t *testing.T) {
	if got := deltaPct(55, 50); got != 10 {
		t.Fatalf("expected +10%% got %v", got)
	}
	if got := deltaPct(0, 50); got != 0 {
		t.Fatalf("expected 0 when today missing got %v", got)
	}
	if got := deltaPct(55, 0); got != 0 {
		t.Fatalf("expected 0 when baseline missing got %v", got)
	}
}
