package forecast

import (
	"math"
	"testing"
	"time"

	"cyclecast/internal/store"
)

func day(d int) time.Time {
	return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, d)
}

func TestAnalyzeAccuracy_InsufficientData(t *testing.T) {
	tests := []struct {
		name      string
		forecasts []store.Forecast
	}{
		{"NoForecasts", nil},
		{"OneForecast", []store.Forecast{{ID: "f1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewSimulator(&fakeStore{forecasts: tt.forecasts}, nil)
			res, err := sim.AnalyzeAccuracy()
			if err != nil {
				t.Fatalf("AnalyzeAccuracy() error: %v", err)
			}
			if res.Accuracy != nil {
				t.Errorf("Expected nil accuracy, got %+v", res.Accuracy)
			}
			if res.Message == "" {
				t.Errorf("Expected an insufficient-data message")
			}
		})
	}
}

func TestAnalyzeAccuracy_Scorecard(t *testing.T) {
	fake := &fakeStore{
		forecasts: []store.Forecast{
			// Realized 2 days late: inside the 80 and 95 windows only.
			{ID: "f1", StoryPoints: 20, ExpectedCompletionDate: day(10),
				Confidence50: 1, Confidence80: 3, Confidence95: 6},
			// Realized 4 days early: inside every window.
			{ID: "f2", StoryPoints: 20, ExpectedCompletionDate: day(16),
				Confidence50: 1, Confidence80: 3, Confidence95: 6},
			// No cycle ever reached 999 points: excluded from all averages.
			{ID: "f3", StoryPoints: 999, ExpectedCompletionDate: day(10),
				Confidence50: 1, Confidence80: 3, Confidence95: 6},
		},
		metrics: []store.CycleMetrics{
			{CycleID: "c1", TotalStoryPoints: 25, EndDate: day(12)},
			{CycleID: "c2", TotalStoryPoints: 30, EndDate: day(20)},
		},
	}
	sim := NewSimulator(fake, nil)

	res, err := sim.AnalyzeAccuracy()
	if err != nil {
		t.Fatalf("AnalyzeAccuracy() error: %v", err)
	}
	if res.Accuracy == nil {
		t.Fatalf("Expected a scorecard, got message %q", res.Message)
	}
	acc := res.Accuracy

	if acc.MatchedForecasts != 2 {
		t.Fatalf("MatchedForecasts = %d, want 2", acc.MatchedForecasts)
	}
	// Both match cycle c1 (earliest end date with >= 20 points): diffs +2, -4.
	if math.Abs(acc.ForecastBias-(-1)) > 1e-9 {
		t.Errorf("ForecastBias = %v, want -1", acc.ForecastBias)
	}
	if math.Abs(acc.MeanAbsoluteError-3) > 1e-9 {
		t.Errorf("MeanAbsoluteError = %v, want 3", acc.MeanAbsoluteError)
	}
	if acc.Within50Confidence != 50 {
		t.Errorf("Within50Confidence = %v, want 50", acc.Within50Confidence)
	}
	if acc.Within80Confidence != 100 {
		t.Errorf("Within80Confidence = %v, want 100", acc.Within80Confidence)
	}
	if acc.Within95Confidence != 100 {
		t.Errorf("Within95Confidence = %v, want 100", acc.Within95Confidence)
	}
}

func TestMatchRealizedCompletion(t *testing.T) {
	cycles := []store.CycleMetrics{
		{CycleID: "c1", TotalStoryPoints: 10, EndDate: day(30)},
		{CycleID: "c2", TotalStoryPoints: 25, EndDate: day(14)},
		{CycleID: "c3", TotalStoryPoints: 40, EndDate: day(7)},
	}

	// Both c2 and c3 reach 20 points; the earliest end date wins.
	realized, ok := matchRealizedCompletion(store.Forecast{StoryPoints: 20}, cycles)
	if !ok || !realized.Equal(day(7)) {
		t.Errorf("matchRealizedCompletion(20) = %v/%v, want %v/true", realized, ok, day(7))
	}

	if _, ok := matchRealizedCompletion(store.Forecast{StoryPoints: 100}, cycles); ok {
		t.Errorf("Expected no match for an unreached target")
	}
}
