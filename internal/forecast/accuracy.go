package forecast

import (
	"math"
	"time"

	"cyclecast/internal/store"
)

// Accuracy is the scorecard comparing stored forecasts with realized cycles.
// Bias is the mean signed difference in days between realized and forecast
// completion dates; positive means forecasts ran optimistic.
type Accuracy struct {
	ForecastBias       float64 `json:"forecast_bias"`
	MeanAbsoluteError  float64 `json:"mean_absolute_error"`
	Within50Confidence float64 `json:"within_50_confidence"` // percent of matched forecasts
	Within80Confidence float64 `json:"within_80_confidence"`
	Within95Confidence float64 `json:"within_95_confidence"`
	MatchedForecasts   int     `json:"matched_forecasts"`
}

// AccuracyResult wraps the scorecard. Accuracy is nil when fewer than 2
// forecasts are stored; that is an explicit insufficient-data answer, not an
// error.
type AccuracyResult struct {
	Accuracy *Accuracy `json:"accuracy"`
	Message  string    `json:"message,omitempty"`
}

// AnalyzeAccuracy replays stored forecasts against realized cycle outcomes.
//
// Forecasts carry no explicit cycle link, so each one is matched to the
// earliest-ending cycle whose total story points meet or exceed the forecast
// target. The proxy can misattribute a forecast when several cycles have
// similar scope; that behavior is deliberate and documented. Unmatched
// forecasts are excluded from all averages rather than counted as misses.
func (s *Simulator) AnalyzeAccuracy() (AccuracyResult, error) {
	forecasts, err := s.store.Forecasts()
	if err != nil {
		return AccuracyResult{}, err
	}
	if len(forecasts) < 2 {
		return AccuracyResult{
			Message: "Not enough historical forecast data for accuracy analysis",
		}, nil
	}

	cycles, err := s.store.CycleMetricsAll()
	if err != nil {
		return AccuracyResult{}, err
	}

	acc := Accuracy{}
	for _, f := range forecasts {
		realized, ok := matchRealizedCompletion(f, cycles)
		if !ok {
			continue
		}
		acc.MatchedForecasts++

		diffDays := realized.Sub(f.ExpectedCompletionDate).Hours() / 24.0
		acc.ForecastBias += diffDays
		acc.MeanAbsoluteError += math.Abs(diffDays)

		if !realized.After(addConfidenceDays(f.ExpectedCompletionDate, f.Confidence50)) {
			acc.Within50Confidence++
		}
		if !realized.After(addConfidenceDays(f.ExpectedCompletionDate, f.Confidence80)) {
			acc.Within80Confidence++
		}
		if !realized.After(addConfidenceDays(f.ExpectedCompletionDate, f.Confidence95)) {
			acc.Within95Confidence++
		}
	}

	if acc.MatchedForecasts > 0 {
		n := float64(acc.MatchedForecasts)
		acc.ForecastBias /= n
		acc.MeanAbsoluteError /= n
		acc.Within50Confidence = acc.Within50Confidence / n * 100
		acc.Within80Confidence = acc.Within80Confidence / n * 100
		acc.Within95Confidence = acc.Within95Confidence / n * 100
	}

	return AccuracyResult{Accuracy: &acc}, nil
}

// matchRealizedCompletion finds the end date of the earliest completed cycle
// whose total story points reach the forecast target.
func matchRealizedCompletion(f store.Forecast, cycles []store.CycleMetrics) (time.Time, bool) {
	var best time.Time
	found := false
	for _, c := range cycles {
		if c.TotalStoryPoints < f.StoryPoints {
			continue
		}
		if !found || c.EndDate.Before(best) {
			best = c.EndDate
			found = true
		}
	}
	return best, found
}

func addConfidenceDays(t time.Time, days float64) time.Time {
	return t.Add(time.Duration(days * 24 * float64(time.Hour)))
}
