package forecast

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"cyclecast/internal/store"
)

// Store is the slice of the entity store the forecasting core needs.
type Store interface {
	CycleMetricsAll() ([]store.CycleMetrics, error)
	Forecasts() ([]store.Forecast, error)
	InsertForecast(store.Forecast) error
}

const (
	// DefaultSimulations is the number of Monte Carlo draws per run.
	DefaultSimulations = 10000
	// DefaultBatchSize bounds peak memory for the draw loop. Batch boundaries
	// never change the aggregate result.
	DefaultBatchSize = 1000

	// Fallback distribution used when fewer than 2 usable velocities exist:
	// center 10 points/cycle, multiplicative dispersion factor 2.
	defaultVelocity   = 10.0
	defaultDispersion = 2.0

	// Clamp policy for degenerate draws before summary statistics.
	nanDays    = 30.0
	posInfDays = 365.0
	negInfDays = 7.0
)

// DefaultConfidenceLevels are the levels reported when the caller passes none.
var DefaultConfidenceLevels = []float64{0.5, 0.8, 0.95}

// Result is the outcome of one simulation run.
type Result struct {
	StoryPoints            float64            `json:"story_points"`
	ExpectedDays           float64            `json:"expected_days"`
	ExpectedCompletionDate time.Time          `json:"expected_completion_date"`
	ConfidenceIntervals    map[string]float64 `json:"confidence_intervals"`
	MinDays                float64            `json:"min_days"`
	MaxDays                float64            `json:"max_days"`
	SimulationCount        int                `json:"simulation_count"`
}

// Simulator fits a velocity distribution to historical cycle metrics and runs
// Monte Carlo completion forecasts against it. It never fails on degenerate
// historical data; it degrades to the default distribution instead.
type Simulator struct {
	store       Store
	rng         *rand.Rand
	now         func() time.Time
	defaultSims int
	batchSize   int
}

// NewSimulator creates a simulator. now may be nil, defaulting to time.Now.
func NewSimulator(s Store, now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{
		store:       s,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		now:         now,
		defaultSims: DefaultSimulations,
		batchSize:   DefaultBatchSize,
	}
}

// SetDefaults overrides the fallback simulation count and the draw batch size.
// Non-positive values keep the current settings.
func (s *Simulator) SetDefaults(simulations, batchSize int) {
	if simulations > 0 {
		s.defaultSims = simulations
	}
	if batchSize > 0 {
		s.batchSize = batchSize
	}
}

// FitDistribution derives log-normal parameters (mu, sigma in log space) from
// historical cycle velocities. Velocity is strictly positive and right-skewed,
// which a normal model would misrepresent. Non-positive and non-finite values
// carry no rate information and are dropped; fewer than 2 usable values fall
// back to the default distribution.
func FitDistribution(metrics []store.CycleMetrics) (mu, sigma float64) {
	var logs []float64
	for _, m := range metrics {
		if m.Velocity > 0 && !math.IsInf(m.Velocity, 0) && !math.IsNaN(m.Velocity) {
			logs = append(logs, math.Log(m.Velocity))
		}
	}

	if len(logs) < 2 {
		return math.Log(defaultVelocity), math.Log(defaultDispersion)
	}

	var sum float64
	for _, v := range logs {
		sum += v
	}
	mu = sum / float64(len(logs))

	var sq float64
	for _, v := range logs {
		sq += (v - mu) * (v - mu)
	}
	sigma = math.Sqrt(sq / float64(len(logs)-1))

	if math.IsNaN(mu) || math.IsNaN(sigma) {
		return math.Log(defaultVelocity), math.Log(defaultDispersion)
	}
	return mu, sigma
}

// Simulate forecasts the completion time for targetPoints of work and
// persists the run as a Forecast record. nSimulations <= 0 uses the default
// count; levels outside (0,1) are ignored and an empty list uses the
// defaults. Persistence failures are logged, never returned: a forecast that
// cannot be stored is still handed to the caller.
func (s *Simulator) Simulate(targetPoints float64, nSimulations int, levels []float64) Result {
	if nSimulations <= 0 {
		nSimulations = s.defaultSims
	}
	levels = validLevels(levels)

	var history []store.CycleMetrics
	if s.store != nil {
		var err error
		history, err = s.store.CycleMetricsAll()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read cycle metrics, using default distribution")
		}
	}
	mu, sigma := FitDistribution(history)

	// Draw in fixed-size batches to bound peak memory on large counts.
	completionDays := make([]float64, nSimulations)
	for start := 0; start < nSimulations; start += s.batchSize {
		end := start + s.batchSize
		if end > nSimulations {
			end = nSimulations
		}
		for i := start; i < end; i++ {
			velocity := math.Exp(mu + sigma*s.rng.NormFloat64())
			completionDays[i] = targetPoints / velocity
		}
	}

	sorted := make([]float64, len(completionDays))
	copy(sorted, completionDays)
	sort.Float64s(sorted)

	intervals := make(map[string]float64, len(levels))
	for _, level := range levels {
		intervals[levelKey(level)] = percentile(sorted, level)
	}

	// Clamp non-finite draws before any summary statistic so a degenerate
	// distribution cannot push NaN or infinity into persisted records.
	sanitize(completionDays)
	sanitize(sorted)

	expectedDays := mean(completionDays)
	if math.IsNaN(expectedDays) || expectedDays <= 0 {
		expectedDays = nanDays
	}
	for key, v := range intervals {
		if math.IsNaN(v) || v <= 0 {
			intervals[key] = expectedDays
		}
	}

	// Clamping can land a mid-slice value above the former tail, so the
	// sanitized slice is no longer sorted; scan for the extremes.
	minDays, maxDays := minMax(sorted)

	now := s.now()
	result := Result{
		StoryPoints:            targetPoints,
		ExpectedDays:           expectedDays,
		ExpectedCompletionDate: addDays(now, expectedDays),
		ConfidenceIntervals:    intervals,
		MinDays:                minDays,
		MaxDays:                maxDays,
		SimulationCount:        nSimulations,
	}

	s.persist(now, result, sorted)
	return result
}

// persist stores the run with the canonical 50/80/95 intervals, regardless of
// which levels the caller requested.
func (s *Simulator) persist(now time.Time, result Result, sorted []float64) {
	if s.store == nil {
		return
	}

	canonical := func(level float64) float64 {
		if v, ok := result.ConfidenceIntervals[levelKey(level)]; ok {
			return v
		}
		v := percentile(sorted, level)
		if math.IsNaN(v) || v <= 0 {
			return result.ExpectedDays
		}
		return v
	}

	record := store.Forecast{
		ID:                     uuid.NewString(),
		SimulationDate:         now,
		StoryPoints:            result.StoryPoints,
		Confidence50:           canonical(0.5),
		Confidence80:           canonical(0.8),
		Confidence95:           canonical(0.95),
		MinCompletionDate:      addDays(now, result.MinDays),
		MaxCompletionDate:      addDays(now, result.MaxDays),
		ExpectedCompletionDate: result.ExpectedCompletionDate,
	}

	if err := s.store.InsertForecast(record); err != nil {
		log.Warn().Err(err).Str("forecast", record.ID).Msg("Failed to store forecast")
	}
}

func validLevels(levels []float64) []float64 {
	var valid []float64
	for _, level := range levels {
		if level > 0 && level < 1 {
			valid = append(valid, level)
		}
	}
	if len(valid) == 0 {
		return DefaultConfidenceLevels
	}
	return valid
}

func levelKey(level float64) string {
	return fmt.Sprintf("confidence_%d", int(level*100))
}

// percentile computes the linearly interpolated percentile of a sorted sample.
func percentile(sorted []float64, level float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	rank := level * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

func sanitize(values []float64) {
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			values[i] = nanDays
		case math.IsInf(v, 1):
			values[i] = posInfDays
		case math.IsInf(v, -1):
			values[i] = negInfDays
		}
	}
}

func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// addDays adds a whole number of days to a reference time, guarding against
// non-finite or non-positive horizons.
func addDays(now time.Time, days float64) time.Time {
	if math.IsNaN(days) || math.IsInf(days, 0) || days < 0 {
		days = nanDays
	}
	return now.AddDate(0, 0, int(days))
}
