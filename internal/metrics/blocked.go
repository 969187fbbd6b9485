package metrics

import (
	"time"

	"cyclecast/internal/store"
)

// BlockedStateSet decides whether a workflow state counts as blocked, either
// by the tracker-reported state type or by a configured state name.
type BlockedStateSet struct {
	names map[string]bool
}

// NewBlockedStateSet builds a set from configured state names. Matching is
// exact on the state name; the "blocked" state type always matches.
func NewBlockedStateSet(names []string) BlockedStateSet {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = true
		}
	}
	return BlockedStateSet{names: set}
}

// Matches reports whether a state name/type pair is a blocked state.
func (b BlockedStateSet) Matches(state, stateType string) bool {
	return stateType == "blocked" || b.names[state]
}

// BuildBlockedPeriods derives blocked periods from an issue's chronologically
// ordered state transitions. A transition into a blocked state opens a period;
// the next transition out of one closes it, so an issue has at most one open
// period at a time. A trailing transition into a blocked state leaves the
// final period open.
func BuildBlockedPeriods(issueID string, changes []store.StateChange, blocked BlockedStateSet) []store.BlockedPeriod {
	var periods []store.BlockedPeriod
	var open *store.BlockedPeriod

	for _, change := range changes {
		isBlocked := blocked.Matches(change.ToState, change.ToType)
		switch {
		case isBlocked && open == nil:
			open = &store.BlockedPeriod{IssueID: issueID, StartedAt: change.CreatedAt}
		case !isBlocked && open != nil:
			end := change.CreatedAt
			open.EndedAt = &end
			periods = append(periods, *open)
			open = nil
		}
	}

	if open != nil {
		periods = append(periods, *open)
	}
	return periods
}

// SumBlockedHours totals the blocked time across all periods of one issue,
// using now as the end of any still-open period.
func SumBlockedHours(periods []store.BlockedPeriod, now time.Time) float64 {
	var total time.Duration
	for _, p := range periods {
		total += p.Duration(now)
	}
	return total.Hours()
}
