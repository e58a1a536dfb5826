package services

import (
	"math"
	"strings"
	"testing"
)

func f(v float64) *float64 { return &v }
func i(v int) *int         { return &v }

func equalWeights(names ...string) ReadinessWeights {
	w := ReadinessWeights{}
	for _, n := range names {
		w[n] = 1
	}
	return w
}

func TestComputeReadiness_WeightedAverage(t *testing.T) {
	// HRV three std devs below baseline scores 0; sleep half a std dev above
	// scores (0.5+3)/6. Equal weights average to 0.2917, score 29.
	inputs := MetricInputs{HRVMs: f(50), SleepH: f(7.5)}
	baseline := Baseline{HRVMean: 65, HRVStd: 5, SleepMean: 7, SleepStd: 1}

	result := ComputeReadiness(inputs, baseline, 1.0, equalWeights("hrv", "sleep"))

	if result.Score != 29 {
		t.Fatalf("expected score=29 got %d", result.Score)
	}
	if result.Confidence != 1.0 {
		t.Fatalf("expected confidence=1.0 got %v", result.Confidence)
	}
	if got := result.Components["hrv"]; got != 0 {
		t.Fatalf("expected hrv component 0 got %v", got)
	}
}

func TestComputeReadiness_NoInputsIsNeutral(t *testing.T) {
	result := ComputeReadiness(MetricInputs{}, Baseline{}, 1.0, equalWeights("hrv", "sleep"))
	if result.Score != 50 {
		t.Fatalf("expected neutral score=50 got %d", result.Score)
	}
	if result.Confidence != 0 {
		t.Fatalf("expected confidence=0 got %v", result.Confidence)
	}
	if len(result.Components) != 0 {
		t.Fatalf("expected no components got %v", result.Components)
	}
}

func TestComputeReadiness_ZeroHistoryNormalizesToMidpoint(t *testing.T) {
	// No baseline history means std 0, z-score 0, component exactly 0.5.
	inputs := MetricInputs{HRVMs: f(42)}
	result := ComputeReadiness(inputs, Baseline{}, 1.0, equalWeights("hrv"))

	if got := result.Components["hrv"]; got != 0.5 {
		t.Fatalf("expected midpoint component 0.5 got %v", got)
	}
	if result.Score != 50 {
		t.Fatalf("expected score=50 got %d", result.Score)
	}
}

func TestComputeReadiness_RHRInverted(t *testing.T) {
	// Resting heart rate two std devs above baseline is bad: -z normalizes
	// to (−2+3)/6.
	inputs := MetricInputs{RHRBpm: f(60)}
	baseline := Baseline{RHRMean: 50, RHRStd: 5}

	result := ComputeReadiness(inputs, baseline, 1.0, equalWeights("rhr"))

	want := (-2.0 + 3) / 6
	if got := result.Components["rhr"]; math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected rhr component %v got %v", want, got)
	}
}

func TestComputeReadiness_SubjectiveScales(t *testing.T) {
	inputs := MetricInputs{Stiffness: i(8), Soreness: i(2), MentalReset: i(6)}
	result := ComputeReadiness(inputs, Baseline{}, 1.0, equalWeights("stiffness", "soreness", "reset"))

	cases := map[string]float64{
		"stiffness": 0.2,
		"soreness":  0.8,
		"reset":     0.6,
	}
	for name, want := range cases {
		if got := result.Components[name]; math.Abs(got-want) > 1e-9 {
			t.Fatalf("component %s: expected %v got %v", name, want, got)
		}
	}
}

func TestComputeReadiness_ConfidenceCountsAvailableWeight(t *testing.T) {
	weights := ReadinessWeights{"hrv": 0.22, "sleep": 0.22, "rhr": 0.12, "load": 0.14, "stiffness": 0.12, "soreness": 0.12, "reset": 0.06}
	inputs := MetricInputs{HRVMs: f(60), SleepH: f(7)}
	baseline := Baseline{HRVMean: 60, HRVStd: 5, SleepMean: 7, SleepStd: 1}

	result := ComputeReadiness(inputs, baseline, 1.0, weights)

	// 0.44 of 1.00 total weight, rounded to 2 decimals.
	if result.Confidence != 0.44 {
		t.Fatalf("expected confidence=0.44 got %v", result.Confidence)
	}
}

func TestNormalizeLoadRatio_Staircase(t *testing.T) {
	cases := []struct {
		ratio float64
		want  float64
	}{
		{0.7, 0.9},
		{0.8, 1.0},
		{1.0, 1.0},
		{1.1, 1.0},
		{1.2, 0.7},
		{1.3, 0.7},
		{1.4, 0.5},
		{1.5, 0.5},
		{1.6, 0.3},
	}
	for _, tc := range cases {
		if got := NormalizeLoadRatio(tc.ratio); got != tc.want {
			t.Fatalf("ratio %v: expected %v got %v", tc.ratio, tc.want, got)
		}
	}
}

func TestZScore_ZeroStd(t *testing.T) {
	if got := zScore(100, 50, 0); got != 0 {
		t.Fatalf("expected z=0 when std=0 got %v", got)
	}
}

func TestNormalizeZ_Clamps(t *testing.T) {
	if got := normalizeZ(5); got != 1 {
		t.Fatalf("expected 1 for z beyond +3 got %v", got)
	}
	if got := normalizeZ(-5); got != 0 {
		t.Fatalf("expected 0 for z beyond -3 got %v", got)
	}
}

func TestStdDev(t *testing.T) {
	if got := StdDev([]float64{5}); got != 0 {
		t.Fatalf("expected 0 for single sample got %v", got)
	}
	got := StdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if math.Abs(got-2) > 1e-9 {
		t.Fatalf("expected population std=2 got %v", got)
	}
}

func TestAcuteChronicRatio(t *testing.T) {
	if got := AcuteChronicRatio([]float64{400, 400, 400}); got != 1.0 {
		t.Fatalf("expected neutral 1.0 for sparse history got %v", got)
	}

	flat := make([]float64, 28)
	for i := range flat {
		flat[i] = 400
	}
	if got := AcuteChronicRatio(flat); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("expected 1.0 for flat load got %v", got)
	}

	// Last week doubles the chronic average.
	spike := make([]float64, 28)
	for i := range spike {
		spike[i] = 400
	}
	for i := 21; i < 28; i++ {
		spike[i] = 800
	}
	got := AcuteChronicRatio(spike)
	want := 800.0 / 500.0
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("expected ratio %v got %v", want, got)
	}
}

func TestReadinessRationale_Tiers(t *testing.T) {
	inputs := MetricInputs{Soreness: i(8)}
	components := map[string]float64{"hrv": 0.3, "sleep": 0.35, "soreness": 0.2}

	rationale := readinessRationale(inputs, components, 45)
	if !strings.HasPrefix(rationale, "Recovery needed. ") {
		t.Fatalf("expected low tier prefix, got %q", rationale)
	}
	for _, want := range []string{"HRV negative", "Sleep deficit", "High soreness"} {
		if !strings.Contains(rationale, want) {
			t.Fatalf("expected rationale to contain %q, got %q", want, rationale)
		}
	}

	rationale = readinessRationale(MetricInputs{}, map[string]float64{"hrv": 0.9}, 85)
	if rationale != "Strong recovery. HRV positive" {
		t.Fatalf("unexpected high tier rationale %q", rationale)
	}

	rationale = readinessRationale(MetricInputs{}, map[string]float64{}, 85)
	if rationale != "Strong recovery. All systems optimal" {
		t.Fatalf("unexpected fallback rationale %q", rationale)
	}

	rationale = readinessRationale(MetricInputs{}, map[string]float64{}, 65)
	if rationale != "Moderate recovery. Consider lighter intensity" {
		t.Fatalf("unexpected moderate rationale %q", rationale)
	}
}

func TestWeightsForSport(t *testing.T) {
	def, err := WeightsForSport("GENERAL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if def["hrv"] != 0.22 {
		t.Fatalf("expected default hrv weight 0.22 got %v", def["hrv"])
	}

	running, err := WeightsForSport("RUNNING")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if running["load"] != 0.20 {
		t.Fatalf("expected running load weight 0.20 got %v", running["load"])
	}

	if got := ReadinessVersion(); got != "v1.0" {
		t.Fatalf("expected version v1.0 got %q", got)
	}
}
