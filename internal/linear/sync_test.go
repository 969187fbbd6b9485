package linear

import (
	"errors"
	"testing"

	"cyclecast/internal/store"
)

// fakeClient serves canned tracker payloads.
type fakeClient struct {
	users  []UserDTO
	teams  []TeamDTO
	issues map[string][]IssueDTO

	connectErr error
}

func (f *fakeClient) TestConnection() (ViewerDTO, error) {
	return ViewerDTO{ID: "v1", Name: "Bot"}, f.connectErr
}
func (f *fakeClient) FetchUsers() ([]UserDTO, error) { return f.users, nil }
func (f *fakeClient) FetchTeams() ([]TeamDTO, error) { return f.teams, nil }
func (f *fakeClient) FetchTeamIssues(teamID string) ([]IssueDTO, error) {
	return f.issues[teamID], nil
}

// fakeSyncStore records every upsert.
type fakeSyncStore struct {
	users      []store.User
	cycles     []store.Cycle
	issues     []store.Issue
	changes    []store.StateChange
	periods    []store.BlockedPeriod
	capacities []store.Capacity
}

func (f *fakeSyncStore) UpsertUser(u store.User) error   { f.users = append(f.users, u); return nil }
func (f *fakeSyncStore) UpsertCycle(c store.Cycle) error { f.cycles = append(f.cycles, c); return nil }
func (f *fakeSyncStore) UpsertIssue(i store.Issue) error { f.issues = append(f.issues, i); return nil }
func (f *fakeSyncStore) UpsertStateChange(c store.StateChange) error {
	f.changes = append(f.changes, c)
	return nil
}
func (f *fakeSyncStore) UpsertBlockedPeriod(p store.BlockedPeriod) error {
	f.periods = append(f.periods, p)
	return nil
}
func (f *fakeSyncStore) UpsertCapacity(c store.Capacity) error {
	f.capacities = append(f.capacities, c)
	return nil
}

func testTeam() TeamDTO {
	team := TeamDTO{ID: "t1", Name: "Platform"}
	team.Cycles.Nodes = []CycleDTO{
		{ID: "c1", Number: 1, StartsAt: "2026-03-02T00:00:00Z", EndsAt: "2026-03-16T00:00:00Z"},
		{ID: "bad", Number: 2, StartsAt: "soon", EndsAt: "later"}, // skipped, not fatal
	}
	team.Members.Nodes = []UserDTO{{ID: "u1", Name: "Dev"}}
	return team
}

func TestSyncerRun(t *testing.T) {
	issue := IssueDTO{
		ID:        "i1",
		Title:     "Fix flaky test",
		State:     StateDTO{Name: "Done", Type: "completed"},
		CreatedAt: "2026-03-01T08:00:00Z",
	}
	issue.History.Nodes = []HistoryDTO{
		// Out of order on purpose; the syncer sorts before deriving periods.
		{CreatedAt: "2026-03-04T09:00:00Z", ToState: &StateDTO{Name: "In Progress", Type: "started"}},
		{CreatedAt: "2026-03-03T09:00:00Z", ToState: &StateDTO{Name: "Blocked", Type: "blocked"}},
		{CreatedAt: "2026-03-02T09:00:00Z", ToState: &StateDTO{Name: "In Progress", Type: "started"}},
	}

	client := &fakeClient{
		users:  []UserDTO{{ID: "u1", Name: "Dev", Email: "dev@example.com"}},
		teams:  []TeamDTO{testTeam()},
		issues: map[string][]IssueDTO{"t1": {issue}},
	}
	st := &fakeSyncStore{}

	syncer := NewSyncer(client, st, SyncOptions{DefaultCapacityHours: 40, DefaultCapacityPoints: 12})
	if err := syncer.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if len(st.users) != 1 {
		t.Errorf("Expected 1 user, got %d", len(st.users))
	}
	if len(st.cycles) != 1 || st.cycles[0].ID != "c1" {
		t.Errorf("Expected only the valid cycle, got %+v", st.cycles)
	}
	if len(st.capacities) != 1 {
		t.Fatalf("Expected 1 seeded capacity, got %d", len(st.capacities))
	}
	if st.capacities[0].Hours == nil || *st.capacities[0].Hours != 40 {
		t.Errorf("Seeded capacity hours = %v, want 40", st.capacities[0].Hours)
	}
	// Utilization divides by points, so seeding must write them too.
	if st.capacities[0].Points == nil || *st.capacities[0].Points != 12 {
		t.Errorf("Seeded capacity points = %v, want 12", st.capacities[0].Points)
	}

	if len(st.issues) != 1 {
		t.Fatalf("Expected 1 issue, got %d", len(st.issues))
	}
	if len(st.changes) != 3 {
		t.Fatalf("Expected 3 state changes, got %d", len(st.changes))
	}
	for i := 1; i < len(st.changes); i++ {
		if st.changes[i].CreatedAt.Before(st.changes[i-1].CreatedAt) {
			t.Errorf("State changes stored out of order: %v", st.changes)
		}
	}

	if len(st.periods) != 1 {
		t.Fatalf("Expected 1 blocked period, got %d", len(st.periods))
	}
	p := st.periods[0]
	if p.EndedAt == nil {
		t.Fatalf("Blocked period should be closed by the later transition")
	}
	if got := p.EndedAt.Sub(p.StartedAt).Hours(); got != 24 {
		t.Errorf("Blocked duration = %vh, want 24h", got)
	}
}

func TestSyncerRun_ConnectionFailure(t *testing.T) {
	client := &fakeClient{connectErr: errors.New("401")}
	syncer := NewSyncer(client, &fakeSyncStore{}, SyncOptions{})
	if err := syncer.Run(); err == nil {
		t.Errorf("Expected an error when the connection test fails")
	}
}

func TestSyncerRun_NoCapacitySeedingWhenDisabled(t *testing.T) {
	client := &fakeClient{teams: []TeamDTO{testTeam()}}
	st := &fakeSyncStore{}
	syncer := NewSyncer(client, st, SyncOptions{DefaultCapacityHours: 0})
	if err := syncer.Run(); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(st.capacities) != 0 {
		t.Errorf("Expected no seeded capacities, got %d", len(st.capacities))
	}
}
