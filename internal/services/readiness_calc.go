package services

import (
	"fmt"
	"math"
	"strings"
)

// MetricInputs are the raw values feeding one readiness computation. Nil
// means the metric was not observed that day; missing components are
// excluded from both sides of the weighted average rather than defaulted.
type MetricInputs struct {
	HRVMs       *float64 `json:"hrvMs"`
	SleepH      *float64 `json:"sleepH"`
	RHRBpm      *float64 `json:"rhrBpm"`
	Load        *float64 `json:"load"`
	Stiffness   *int     `json:"stiffness"`
	Soreness    *int     `json:"soreness"`
	MentalReset *int     `json:"mentalReset"`
}

// Baseline is the 7-day trailing mean/std per metric, computed over samples
// strictly before the target date. A metric with zero or one historical
// sample has std 0, which normalizes today's value to the neutral midpoint.
type Baseline struct {
	HRVMean   float64 `json:"hrvMean"`
	HRVStd    float64 `json:"hrvStd"`
	SleepMean float64 `json:"sleepMean"`
	SleepStd  float64 `json:"sleepStd"`
	RHRMean   float64 `json:"rhrMean"`
	RHRStd    float64 `json:"rhrStd"`
	LoadMean  float64 `json:"loadMean"`
	LoadStd   float64 `json:"loadStd"`
}

type ReadinessResult struct {
	Score      int
	Confidence float64
	Components map[string]float64
	Rationale  string
}

// ComputeReadiness folds the available components into a weighted 0-100
// composite. acuteChronic is the 7d/28d load ratio (1.0 when load history is
// sparse).
func ComputeReadiness(inputs MetricInputs, baseline Baseline, acuteChronic float64, weights ReadinessWeights) ReadinessResult {
	components := map[string]float64{}
	var weightedSum, totalWeight float64

	use := func(name string, score float64) {
		components[name] = score
		weightedSum += score * weights[name]
		totalWeight += weights[name]
	}

	if inputs.HRVMs != nil {
		z := zScore(*inputs.HRVMs, baseline.HRVMean, baseline.HRVStd)
		use("hrv", normalizeZ(z))
	}
	if inputs.SleepH != nil {
		z := zScore(*inputs.SleepH, baseline.SleepMean, baseline.SleepStd)
		use("sleep", normalizeZ(z))
	}
	if inputs.RHRBpm != nil {
		// Higher resting heart rate is worse, so the z-score is inverted.
		z := zScore(*inputs.RHRBpm, baseline.RHRMean, baseline.RHRStd)
		use("rhr", normalizeZ(-z))
	}
	if inputs.Load != nil {
		use("load", NormalizeLoadRatio(acuteChronic))
	}
	if inputs.Stiffness != nil {
		use("stiffness", inverseScale(*inputs.Stiffness))
	}
	if inputs.Soreness != nil {
		use("soreness", inverseScale(*inputs.Soreness))
	}
	if inputs.MentalReset != nil {
		use("reset", scale(*inputs.MentalReset))
	}

	score := 50
	if totalWeight > 0 {
		score = int(math.Round(weightedSum / totalWeight * 100))
	}
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	confidence := 0.0
	if total := weights.TotalWeight(); total > 0 {
		confidence = math.Round(totalWeight/total*100) / 100
	}

	return ReadinessResult{
		Score:      score,
		Confidence: confidence,
		Components: components,
		Rationale:  readinessRationale(inputs, components, score),
	}
}

func zScore(value, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (value - mean) / std
}

// normalizeZ clamps the z-score to [-3, 3] and maps it onto [0, 1].
func normalizeZ(z float64) float64 {
	clamped := math.Max(-3, math.Min(3, z))
	return (clamped + 3) / 6
}

// NormalizeLoadRatio maps the acute:chronic ratio onto a component score via
// a fixed staircase: a modest taper scores best, a workload spike worst.
func NormalizeLoadRatio(ratio float64) float64 {
	switch {
	case ratio < 0.8:
		return 0.9
	case ratio > 1.5:
		return 0.3
	case ratio > 1.3:
		return 0.5
	case ratio > 1.1:
		return 0.7
	default:
		return 1.0
	}
}

func scale(value int) float64 {
	return float64(value) / 10
}

func inverseScale(value int) float64 {
	return float64(10-value) / 10
}

// Mean returns the arithmetic mean, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// StdDev is the population standard deviation, 0 for fewer than two samples.
func StdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	avg := Mean(values)
	var sumSq float64
	for _, v := range values {
		d := v - avg
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(len(values)))
}

func readinessRationale(inputs MetricInputs, components map[string]float64, score int) string {
	var factors []string

	if hrv, ok := components["hrv"]; ok {
		impact := "negative"
		if hrv > 0.5 {
			impact = "positive"
		}
		factors = append(factors, fmt.Sprintf("HRV %s", impact))
	}
	if sleep, ok := components["sleep"]; ok && sleep < 0.4 {
		factors = append(factors, "Sleep deficit")
	}
	if _, ok := components["soreness"]; ok && inputs.Soreness != nil && *inputs.Soreness >= 7 {
		factors = append(factors, "High soreness")
	}
	if _, ok := components["stiffness"]; ok && inputs.Stiffness != nil && *inputs.Stiffness >= 7 {
		factors = append(factors, "High stiffness")
	}

	joined := strings.Join(factors, ", ")
	switch {
	case score >= 80:
		if joined == "" {
			joined = "All systems optimal"
		}
		return "Strong recovery. " + joined
	case score >= 60:
		if joined == "" {
			joined = "Consider lighter intensity"
		}
		return "Moderate recovery. " + joined
	default:
		if joined == "" {
			joined = "Prioritize rest"
		}
		return "Recovery needed. " + joined
	}
}
