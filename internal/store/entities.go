package store

import "time"

// User is a tracker account that issues can be assigned to.
type User struct {
	ID    string
	Name  string
	Email string
}

// Cycle is a fixed time-boxed work period (sprint).
type Cycle struct {
	ID        string
	Number    int
	Name      string
	StartDate time.Time
	EndDate   time.Time
	Progress  *float64
	WIPLimit  *int
}

// Issue is a single work item. Estimate and most timestamps are optional
// because the tracker only guarantees a creation time.
type Issue struct {
	ID          string
	Title       string
	State       string
	Priority    int
	Estimate    *float64 // story points
	CreatedAt   time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CycleID     *string
	AssigneeID  *string
	Team        *string
	Project     *string
	Initiative  *string
	IdealHours  *float64
	ActualHours *float64
}

// Completed reports whether the issue has a completion timestamp.
func (i Issue) Completed() bool {
	return i.CompletedAt != nil
}

// Points returns the estimate, treating a missing estimate as zero.
func (i Issue) Points() float64 {
	if i.Estimate == nil {
		return 0
	}
	return *i.Estimate
}

// BlockedPeriod is an interval during which an issue could not progress.
// A period without an end is currently blocked.
type BlockedPeriod struct {
	IssueID   string
	StartedAt time.Time
	EndedAt   *time.Time
}

// Duration returns the accumulated blocked time, using now for open periods.
func (b BlockedPeriod) Duration(now time.Time) time.Duration {
	end := now
	if b.EndedAt != nil {
		end = *b.EndedAt
	}
	if end.Before(b.StartedAt) {
		return 0
	}
	return end.Sub(b.StartedAt)
}

// StateChange records a single workflow transition of an issue.
type StateChange struct {
	IssueID   string
	CreatedAt time.Time
	FromState string
	ToState   string
	ToType    string // workflow state type reported by the tracker
}

// Capacity is the available effort for one user within one cycle.
type Capacity struct {
	CycleID string
	UserID  string
	Hours   *float64
	Points  *float64
}

// CycleMetrics is the derived per-cycle record. It is recomputable from raw
// entities plus "now" and is upserted by cycle id.
type CycleMetrics struct {
	CycleID             string
	TotalStoryPoints    float64
	CompletedStoryPoints float64
	Throughput          int
	Velocity            float64
	AvgCycleTimeHours   float64
	AvgLeadTimeHours    float64
	AvgBlockedHours     float64
	DominantTeam        string
	DominantProject     string
	DominantInitiative  string
	StartDate           time.Time
	EndDate             time.Time
}

// UserMetrics is the derived per-(user, cycle) record. Only written when the
// user completed at least one issue in the cycle.
type UserMetrics struct {
	UserID              string
	CycleID             string
	StoryPointsCompleted float64
	AvgCycleTimeHours   float64
	Velocity            float64
	CapacityUtilization float64
	EfficiencyRatio     float64
}

// DailyMetrics is the derived per-(cycle, day) snapshot. Each day is computed
// from raw entities only, never from the previous day's record.
type DailyMetrics struct {
	CycleID             string
	Day                 time.Time // UTC midnight
	WIPCount            int
	BlockedCount        int
	CompletedPoints     float64
	RemainingIdealHours float64
}

// Forecast is one persisted Monte Carlo simulation run. Records are
// append-only, identified by a generated id.
type Forecast struct {
	ID                     string
	SimulationDate         time.Time
	StoryPoints            float64
	Confidence50           float64 // days
	Confidence80           float64
	Confidence95           float64
	MinCompletionDate      time.Time
	MaxCompletionDate      time.Time
	ExpectedCompletionDate time.Time
}
