package forecast

import (
	"sort"
	"time"

	"cyclecast/internal/store"
)

// trendWindow is the trailing rolling window for velocity smoothing. The
// first points use partial windows rather than being dropped (minimum
// period 1).
const trendWindow = 3

// TrendPoint is one entry in the velocity trend series.
type TrendPoint struct {
	Date            time.Time `json:"date"`
	Velocity        float64   `json:"velocity"`
	RollingVelocity float64   `json:"rolling_velocity"`
	TrendSlope      float64   `json:"trend_slope"`
}

// VelocityTrend smooths per-cycle velocity into a trend signal read from the
// store. Fewer than 2 cycles yield an empty series.
func (s *Simulator) VelocityTrend() ([]TrendPoint, error) {
	metrics, err := s.store.CycleMetricsAll()
	if err != nil {
		return nil, err
	}
	return ComputeVelocityTrend(metrics), nil
}

// ComputeVelocityTrend sorts cycles by start date and computes a trailing
// rolling mean and a trailing rolling regression slope of velocity.
func ComputeVelocityTrend(metrics []store.CycleMetrics) []TrendPoint {
	if len(metrics) < 2 {
		return nil
	}

	sorted := make([]store.CycleMetrics, len(metrics))
	copy(sorted, metrics)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartDate.Before(sorted[j].StartDate)
	})

	points := make([]TrendPoint, len(sorted))
	for i, m := range sorted {
		lo := i - trendWindow + 1
		if lo < 0 {
			lo = 0
		}
		window := make([]float64, 0, trendWindow)
		for j := lo; j <= i; j++ {
			window = append(window, sorted[j].Velocity)
		}

		points[i] = TrendPoint{
			Date:            m.StartDate,
			Velocity:        m.Velocity,
			RollingVelocity: mean(window),
			TrendSlope:      regressionSlope(window),
		}
	}
	return points
}

// regressionSlope fits velocity against a local 0..n-1 index by simple linear
// regression. A single-point window has no defined slope and yields 0.
func regressionSlope(values []float64) float64 {
	n := float64(len(values))
	if n < 2 {
		return 0
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	den := n*sumXX - sumX*sumX
	if den == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / den
}
