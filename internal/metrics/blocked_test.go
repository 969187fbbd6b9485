package metrics

import (
	"testing"
	"time"

	"cyclecast/internal/store"
)

func TestBlockedStateSet_Matches(t *testing.T) {
	set := NewBlockedStateSet([]string{"Blocked", "Waiting for Customer"})

	tests := []struct {
		name      string
		state     string
		stateType string
		expected  bool
	}{
		{"ConfiguredName", "Blocked", "unstarted", true},
		{"SecondConfiguredName", "Waiting for Customer", "started", true},
		{"BlockedType", "On Hold", "blocked", true},
		{"NoMatch", "In Progress", "started", false},
		{"CaseSensitive", "blocked", "started", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := set.Matches(tt.state, tt.stateType); got != tt.expected {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.state, tt.stateType, got, tt.expected)
			}
		})
	}
}

func TestBuildBlockedPeriods(t *testing.T) {
	set := NewBlockedStateSet([]string{"Blocked"})
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	at := func(h int) time.Time { return base.Add(time.Duration(h) * time.Hour) }

	changes := []store.StateChange{
		{IssueID: "i1", CreatedAt: at(0), ToState: "In Progress", ToType: "started"},
		{IssueID: "i1", CreatedAt: at(2), ToState: "Blocked", ToType: "unstarted"},
		{IssueID: "i1", CreatedAt: at(3), ToState: "Blocked", ToType: "unstarted"}, // still blocked, no new period
		{IssueID: "i1", CreatedAt: at(8), ToState: "In Progress", ToType: "started"},
		{IssueID: "i1", CreatedAt: at(10), ToState: "Blocked", ToType: "unstarted"},
	}

	periods := BuildBlockedPeriods("i1", changes, set)
	if len(periods) != 2 {
		t.Fatalf("Expected 2 periods, got %d", len(periods))
	}

	if !periods[0].StartedAt.Equal(at(2)) {
		t.Errorf("First period start = %v, want %v", periods[0].StartedAt, at(2))
	}
	if periods[0].EndedAt == nil || !periods[0].EndedAt.Equal(at(8)) {
		t.Errorf("First period end = %v, want %v", periods[0].EndedAt, at(8))
	}

	if !periods[1].StartedAt.Equal(at(10)) {
		t.Errorf("Second period start = %v, want %v", periods[1].StartedAt, at(10))
	}
	if periods[1].EndedAt != nil {
		t.Errorf("Trailing period should stay open, got end %v", periods[1].EndedAt)
	}
}

func TestBuildBlockedPeriods_NeverBlocked(t *testing.T) {
	set := NewBlockedStateSet(nil)
	changes := []store.StateChange{
		{IssueID: "i1", CreatedAt: time.Now(), ToState: "In Progress", ToType: "started"},
		{IssueID: "i1", CreatedAt: time.Now(), ToState: "Done", ToType: "completed"},
	}
	if periods := BuildBlockedPeriods("i1", changes, set); len(periods) != 0 {
		t.Errorf("Expected no periods, got %d", len(periods))
	}
}

func TestSumBlockedHours(t *testing.T) {
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := base.Add(4 * time.Hour)
	now := base.Add(10 * time.Hour)

	periods := []store.BlockedPeriod{
		{IssueID: "i1", StartedAt: base, EndedAt: &end}, // 4h closed
		{IssueID: "i1", StartedAt: base.Add(6 * time.Hour)}, // open, 4h until now
	}

	if got := SumBlockedHours(periods, now); got != 8 {
		t.Errorf("SumBlockedHours() = %v, want 8", got)
	}

	if got := SumBlockedHours(nil, now); got != 0 {
		t.Errorf("SumBlockedHours(nil) = %v, want 0", got)
	}
}
