// Package engine generates synthetic tracker data for local testing of the
// aggregation and forecasting pipeline without a Linear workspace.
package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"cyclecast/internal/store"
)

// GeneratorConfig controls the synthetic dataset shape.
type GeneratorConfig struct {
	Scenario string // steady, volatile
	Cycles   int
	Seed     int64
	Now      time.Time
}

// Dataset is the generated raw entity set.
type Dataset struct {
	Users          []store.User
	Cycles         []store.Cycle
	Issues         []store.Issue
	StateChanges   []store.StateChange
	BlockedPeriods []store.BlockedPeriod
	Capacities     []store.Capacity
}

var teamNames = []string{"Platform", "Growth", "Core"}
var projectNames = []string{"Atlas", "Borealis", "Cinder"}

// Generate builds a dataset of completed two-week cycles leading up to Now.
func Generate(cfg GeneratorConfig) Dataset {
	rng := rand.New(rand.NewSource(cfg.Seed))
	ds := Dataset{}

	for u := 0; u < 4; u++ {
		ds.Users = append(ds.Users, store.User{
			ID:    fmt.Sprintf("user-%d", u),
			Name:  fmt.Sprintf("Dev %d", u),
			Email: fmt.Sprintf("dev%d@example.com", u),
		})
	}

	// Base velocity per scenario; volatile teams swing widely between cycles.
	baseVelocity := 30.0
	jitter := 0.15
	if cfg.Scenario == "volatile" {
		jitter = 0.6
	}

	cycleStart := cfg.Now.AddDate(0, 0, -14*cfg.Cycles)
	issueSeq := 0

	for c := 0; c < cfg.Cycles; c++ {
		cycle := store.Cycle{
			ID:        fmt.Sprintf("cycle-%d", c),
			Number:    c + 1,
			Name:      fmt.Sprintf("Cycle %d", c+1),
			StartDate: cycleStart,
			EndDate:   cycleStart.AddDate(0, 0, 14),
		}
		ds.Cycles = append(ds.Cycles, cycle)

		for _, u := range ds.Users {
			hours := 60.0
			points := 12.0
			ds.Capacities = append(ds.Capacities, store.Capacity{
				CycleID: cycle.ID,
				UserID:  u.ID,
				Hours:   &hours,
				Points:  &points,
			})
		}

		velocity := baseVelocity * math.Exp(jitter*rng.NormFloat64())
		remaining := velocity
		for remaining > 0 {
			estimate := float64(1 + rng.Intn(5))
			if estimate > remaining {
				estimate = remaining
			}
			remaining -= estimate

			issue := synthesizeIssue(rng, &ds, cycle, estimate, issueSeq)
			ds.Issues = append(ds.Issues, issue)
			issueSeq++
		}

		cycleStart = cycle.EndDate
	}

	return ds
}

func synthesizeIssue(rng *rand.Rand, ds *Dataset, cycle store.Cycle, estimate float64, seq int) store.Issue {
	id := fmt.Sprintf("issue-%d", seq)
	created := cycle.StartDate.Add(-time.Duration(rng.Intn(72)) * time.Hour)
	started := cycle.StartDate.Add(time.Duration(rng.Intn(5*24)) * time.Hour)
	completed := started.Add(time.Duration(12+rng.Intn(7*24)) * time.Hour)
	if completed.After(cycle.EndDate) {
		completed = cycle.EndDate.Add(-time.Hour)
	}

	assignee := fmt.Sprintf("user-%d", rng.Intn(len(ds.Users)))
	team := teamNames[rng.Intn(len(teamNames))]
	project := projectNames[rng.Intn(len(projectNames))]
	ideal := estimate * 4
	actual := ideal * (0.8 + 0.6*rng.Float64())

	issue := store.Issue{
		ID:          id,
		Title:       fmt.Sprintf("Task %d", seq),
		State:       "Done",
		Estimate:    &estimate,
		CreatedAt:   created,
		StartedAt:   &started,
		CompletedAt: &completed,
		CycleID:     &cycle.ID,
		AssigneeID:  &assignee,
		Team:        &team,
		Project:     &project,
		IdealHours:  &ideal,
		ActualHours: &actual,
	}

	ds.StateChanges = append(ds.StateChanges,
		store.StateChange{IssueID: id, CreatedAt: started, FromState: "Todo", ToState: "In Progress", ToType: "started"},
		store.StateChange{IssueID: id, CreatedAt: completed, FromState: "In Progress", ToState: "Done", ToType: "completed"},
	)

	// Roughly a fifth of issues hit a mid-flight blocker.
	if rng.Intn(5) == 0 {
		blockStart := started.Add(time.Duration(6+rng.Intn(24)) * time.Hour)
		blockEnd := blockStart.Add(time.Duration(4+rng.Intn(48)) * time.Hour)
		if blockEnd.After(completed) {
			blockEnd = completed
		}
		ds.StateChanges = append(ds.StateChanges,
			store.StateChange{IssueID: id, CreatedAt: blockStart, FromState: "In Progress", ToState: "Blocked", ToType: "blocked"},
			store.StateChange{IssueID: id, CreatedAt: blockEnd, FromState: "Blocked", ToState: "In Progress", ToType: "started"},
		)
		ds.BlockedPeriods = append(ds.BlockedPeriods, store.BlockedPeriod{
			IssueID:   id,
			StartedAt: blockStart,
			EndedAt:   &blockEnd,
		})
	}

	return issue
}

// Save writes the dataset into a cyclecast database under dataDir.
func Save(dataDir string, ds Dataset) error {
	db, err := store.Open(dataDir)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, u := range ds.Users {
		if err := db.UpsertUser(u); err != nil {
			return err
		}
	}
	for _, c := range ds.Cycles {
		if err := db.UpsertCycle(c); err != nil {
			return err
		}
	}
	for _, i := range ds.Issues {
		if err := db.UpsertIssue(i); err != nil {
			return err
		}
	}
	for _, s := range ds.StateChanges {
		if err := db.UpsertStateChange(s); err != nil {
			return err
		}
	}
	for _, b := range ds.BlockedPeriods {
		if err := db.UpsertBlockedPeriod(b); err != nil {
			return err
		}
	}
	for _, c := range ds.Capacities {
		if err := db.UpsertCapacity(c); err != nil {
			return err
		}
	}
	return nil
}
