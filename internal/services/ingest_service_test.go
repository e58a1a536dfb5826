package services

import (
	"testing"

	"github.com/recoveryplus/recoveryplus-backend/internal/types"
)

func TestValidateEntry(t *testing.T) {
	s := &ingestService{log: testLogger(t)}

	cases := []struct {
		name    string
		entry   MetricEntry
		wantErr bool
	}{
		{"valid hrv", MetricEntry{Kind: types.MetricHRV, Value: 62, Date: "2025-03-09"}, false},
		{"valid zero value", MetricEntry{Kind: types.MetricLoad, Value: 0, Date: "2025-03-09"}, false},
		{"unknown kind", MetricEntry{Kind: "BLOOD_OXYGEN", Value: 97, Date: "2025-03-09"}, true},
		{"bad date", MetricEntry{Kind: types.MetricHRV, Value: 62, Date: "not-a-date"}, true},
		{"negative value", MetricEntry{Kind: types.MetricHRV, Value: -5, Date: "2025-03-09"}, true},
	}
	for _, tc := range cases {
		_, err := s.validateEntry(tc.entry)
		if tc.wantErr && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !tc.wantErr && err != nil {
			t.Fatalf("%s: unexpected error: %v", tc.name, err)
		}
	}
}

func TestValidateSurvey(t *testing.T) {
	valid := SurveyInput{Stiffness: 5, Soreness: 5, MentalReset: 5}
	if err := validateSurvey(valid); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, input := range []SurveyInput{
		{Stiffness: 0, Soreness: 5, MentalReset: 5},
		{Stiffness: 5, Soreness: 11, MentalReset: 5},
		{Stiffness: 5, Soreness: 5, MentalReset: -1},
	} {
		if err := validateSurvey(input); err == nil {
			t.Fatalf("expected error for %+v", input)
		}
	}
}
