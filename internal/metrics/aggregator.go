package metrics

import (
	"time"

	"github.com/rs/zerolog/log"

	"cyclecast/internal/store"
)

// Store is the slice of the entity store the aggregator needs. The production
// implementation is *store.DB; tests use an in-memory fake.
type Store interface {
	Cycles() ([]store.Cycle, error)
	IssuesByCycle(cycleID string) ([]store.Issue, error)
	BlockedPeriods() (map[string][]store.BlockedPeriod, error)
	CapacitiesByCycle(cycleID string) (map[string]store.Capacity, error)
	UpsertCycleMetrics(store.CycleMetrics) error
	UpsertUserMetrics(store.UserMetrics) error
	UpsertDailyMetrics(store.DailyMetrics) error
}

// Aggregator derives cycle-, user-, and day-level metrics from raw entities.
// Every derivation is a pure function of its inputs plus "now"; repeated runs
// over unchanged raw data upsert identical records.
type Aggregator struct {
	store Store
	now   func() time.Time
}

// NewAggregator creates an aggregator. now may be nil, defaulting to time.Now.
func NewAggregator(s Store, now func() time.Time) *Aggregator {
	if now == nil {
		now = time.Now
	}
	return &Aggregator{store: s, now: now}
}

// Run recomputes and upserts derived metrics for every stored cycle. A cycle
// that fails to compute or persist is logged and skipped; it never aborts the
// remaining cycles.
func (a *Aggregator) Run() error {
	cycles, err := a.store.Cycles()
	if err != nil {
		return err
	}
	blocked, err := a.store.BlockedPeriods()
	if err != nil {
		return err
	}

	now := a.now()
	for _, cycle := range cycles {
		issues, err := a.store.IssuesByCycle(cycle.ID)
		if err != nil {
			log.Error().Err(err).Str("cycle", cycle.ID).Msg("Failed to read issues, skipping cycle")
			continue
		}

		cm := ComputeCycleMetrics(cycle, issues, blocked, now)
		if err := a.store.UpsertCycleMetrics(cm); err != nil {
			log.Error().Err(err).Str("cycle", cycle.ID).Msg("Failed to write cycle metrics")
		}

		capacities, err := a.store.CapacitiesByCycle(cycle.ID)
		if err != nil {
			log.Error().Err(err).Str("cycle", cycle.ID).Msg("Failed to read capacities")
			capacities = nil
		}
		for _, um := range ComputeUserMetrics(cycle, issues, capacities) {
			if err := a.store.UpsertUserMetrics(um); err != nil {
				log.Error().Err(err).Str("cycle", cycle.ID).Str("user", um.UserID).Msg("Failed to write user metrics")
			}
		}

		for _, dm := range ComputeDailyMetrics(cycle, issues, blocked, now) {
			if err := a.store.UpsertDailyMetrics(dm); err != nil {
				log.Error().Err(err).Str("cycle", cycle.ID).Time("day", dm.Day).Msg("Failed to write daily metrics")
			}
		}
	}
	return nil
}

// ComputeCycleMetrics derives the per-cycle record. Averages are taken only
// over issues carrying the required timestamps; an empty set yields 0, not NaN.
func ComputeCycleMetrics(cycle store.Cycle, issues []store.Issue, blocked map[string][]store.BlockedPeriod, now time.Time) store.CycleMetrics {
	m := store.CycleMetrics{
		CycleID:   cycle.ID,
		StartDate: cycle.StartDate,
		EndDate:   cycle.EndDate,
	}

	var cycleTimes, leadTimes, blockedHours []float64
	for _, issue := range issues {
		m.TotalStoryPoints += issue.Points()
		if !issue.Completed() {
			continue
		}
		m.CompletedStoryPoints += issue.Points()
		m.Throughput++
		if issue.StartedAt != nil {
			cycleTimes = append(cycleTimes, issue.CompletedAt.Sub(*issue.StartedAt).Hours())
		}
		leadTimes = append(leadTimes, issue.CompletedAt.Sub(issue.CreatedAt).Hours())
		blockedHours = append(blockedHours, SumBlockedHours(blocked[issue.ID], now))
	}

	m.Velocity = m.CompletedStoryPoints
	m.AvgCycleTimeHours = mean(cycleTimes)
	m.AvgLeadTimeHours = mean(leadTimes)
	m.AvgBlockedHours = mean(blockedHours)
	m.DominantTeam = dominantTag(issues, func(i store.Issue) *string { return i.Team })
	m.DominantProject = dominantTag(issues, func(i store.Issue) *string { return i.Project })
	m.DominantInitiative = dominantTag(issues, func(i store.Issue) *string { return i.Initiative })
	return m
}

// ComputeUserMetrics derives one record per assignee with at least one
// completed issue in the cycle. Zero capacity yields utilization 0; zero
// actual hours yields the neutral efficiency ratio 1.0.
func ComputeUserMetrics(cycle store.Cycle, issues []store.Issue, capacities map[string]store.Capacity) []store.UserMetrics {
	type userAccum struct {
		points     float64
		cycleTimes []float64
		idealSum   float64
		actualSum  float64
	}

	accums := make(map[string]*userAccum)
	var order []string // deterministic output independent of map iteration

	for _, issue := range issues {
		if !issue.Completed() || issue.AssigneeID == nil {
			continue
		}
		userID := *issue.AssigneeID
		acc, ok := accums[userID]
		if !ok {
			acc = &userAccum{}
			accums[userID] = acc
			order = append(order, userID)
		}
		acc.points += issue.Points()
		if issue.StartedAt != nil {
			acc.cycleTimes = append(acc.cycleTimes, issue.CompletedAt.Sub(*issue.StartedAt).Hours())
		}
		if issue.IdealHours != nil {
			acc.idealSum += *issue.IdealHours
		}
		if issue.ActualHours != nil {
			acc.actualSum += *issue.ActualHours
		}
	}

	var metrics []store.UserMetrics
	for _, userID := range order {
		acc := accums[userID]

		utilization := 0.0
		if c, ok := capacities[userID]; ok && c.Points != nil && *c.Points > 0 {
			utilization = acc.points / *c.Points
		}

		efficiency := 1.0
		if acc.actualSum > 0 {
			efficiency = acc.idealSum / acc.actualSum
		}

		metrics = append(metrics, store.UserMetrics{
			UserID:               userID,
			CycleID:              cycle.ID,
			StoryPointsCompleted: acc.points,
			AvgCycleTimeHours:    mean(acc.cycleTimes),
			Velocity:             acc.points,
			CapacityUtilization:  utilization,
			EfficiencyRatio:      efficiency,
		})
	}
	return metrics
}

// ComputeDailyMetrics derives a point-in-time snapshot for every calendar day
// from the cycle start through min(cycle end, now). Each day is computed from
// raw entities alone, so any single day can be recomputed in isolation.
func ComputeDailyMetrics(cycle store.Cycle, issues []store.Issue, blocked map[string][]store.BlockedPeriod, now time.Time) []store.DailyMetrics {
	first := truncateDay(cycle.StartDate)
	last := cycle.EndDate
	if now.Before(last) {
		last = now
	}
	last = truncateDay(last)
	if last.Before(first) {
		return nil
	}

	var metrics []store.DailyMetrics
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		dayEnd := day.AddDate(0, 0, 1)
		m := store.DailyMetrics{CycleID: cycle.ID, Day: day}

		for _, issue := range issues {
			completedBy := issue.CompletedAt != nil && issue.CompletedAt.Before(dayEnd)

			if issue.StartedAt != nil && issue.StartedAt.Before(dayEnd) && !completedBy {
				m.WIPCount++
			}
			if completedBy {
				m.CompletedPoints += issue.Points()
			} else if issue.IdealHours != nil {
				m.RemainingIdealHours += *issue.IdealHours
			}
			for _, p := range blocked[issue.ID] {
				if p.StartedAt.Before(dayEnd) && (p.EndedAt == nil || p.EndedAt.After(day)) {
					m.BlockedCount++
					break
				}
			}
		}
		metrics = append(metrics, m)
	}
	return metrics
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// dominantTag returns the most frequent non-empty tag value, breaking ties by
// first appearance in the issue list.
func dominantTag(issues []store.Issue, tag func(store.Issue) *string) string {
	counts := make(map[string]int)
	firstSeen := make(map[string]int)

	for idx, issue := range issues {
		v := tag(issue)
		if v == nil || *v == "" {
			continue
		}
		if _, ok := firstSeen[*v]; !ok {
			firstSeen[*v] = idx
		}
		counts[*v]++
	}

	best := ""
	for value, count := range counts {
		if best == "" {
			best = value
			continue
		}
		if count > counts[best] || (count == counts[best] && firstSeen[value] < firstSeen[best]) {
			best = value
		}
	}
	return best
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
