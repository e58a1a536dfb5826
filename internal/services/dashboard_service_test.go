package services

import (
	"testing"

	"gorm.io/datatypes"

	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

func TestSnapshotFlags(t *testing.T) {
	cases := []struct {
		name    string
		score   *types.ReadinessScore
		metrics KeyMetrics
		want    []string
	}{
		{
			name: "no score no metrics",
			want: []string{},
		},
		{
			name: "hrv below baseline",
			score: &types.ReadinessScore{
				Components: datatypes.JSON([]byte(`{"hrv":0.2,"sleep":0.6}`)),
			},
			want: []string{"HRV below baseline"},
		},
		{
			name: "hrv at or above midpoint not flagged",
			score: &types.ReadinessScore{
				Components: datatypes.JSON([]byte(`{"hrv":0.5}`)),
			},
			want: []string{},
		},
		{
			name: "elevated stiffness and soreness",
			score: &types.ReadinessScore{
				Inputs: datatypes.JSON([]byte(`{"stiffness":7,"soreness":8}`)),
			},
			want: []string{"Stiffness elevated", "Soreness elevated"},
		},
		{
			name:    "short sleep",
			metrics: KeyMetrics{SleepH: f(5.5)},
			want:    []string{"Insufficient sleep"},
		},
		{
			name: "everything at once",
			score: &types.ReadinessScore{
				Components: datatypes.JSON([]byte(`{"hrv":0.1}`)),
				Inputs:     datatypes.JSON([]byte(`{"stiffness":9,"soreness":3}`)),
			},
			metrics: KeyMetrics{SleepH: f(4)},
			want:    []string{"HRV below baseline", "Stiffness elevated", "Insufficient sleep"},
		},
	}

	for _, tc := range cases {
		got := snapshotFlags(tc.score, tc.metrics)
		if len(got) != len(tc.want) {
			t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("%s: expected %v got %v", tc.name, tc.want, got)
			}
		}
	}
}
