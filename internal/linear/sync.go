package linear

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"cyclecast/internal/metrics"
	"cyclecast/internal/store"
)

// SyncStore is the slice of the entity store the sync pipeline writes to.
type SyncStore interface {
	UpsertUser(store.User) error
	UpsertCycle(store.Cycle) error
	UpsertIssue(store.Issue) error
	UpsertStateChange(store.StateChange) error
	UpsertBlockedPeriod(store.BlockedPeriod) error
	UpsertCapacity(store.Capacity) error
}

// SyncOptions tunes the sync pipeline.
type SyncOptions struct {
	// BlockedStates are workflow state names treated as blocked in addition
	// to states the tracker types as blocked.
	BlockedStates []string
	// DefaultCapacityHours and DefaultCapacityPoints seed a per-user capacity
	// for every cycle of a team the user belongs to. Utilization divides by
	// the points value, so leaving it zero reads every user as utilization 0.
	// Zero hours disables seeding entirely.
	DefaultCapacityHours  float64
	DefaultCapacityPoints float64
	// FetchConcurrency bounds the parallel per-team issue fetches.
	FetchConcurrency int
}

// Syncer pulls raw entities from the tracker and upserts them into the store.
// Fetches run concurrently per team; all writes happen sequentially after the
// fetch completes, keeping the store single-writer.
type Syncer struct {
	client Client
	store  SyncStore
	opts   SyncOptions
}

// NewSyncer creates a sync pipeline.
func NewSyncer(client Client, s SyncStore, opts SyncOptions) *Syncer {
	if opts.FetchConcurrency <= 0 {
		opts.FetchConcurrency = 4
	}
	return &Syncer{client: client, store: s, opts: opts}
}

// Run synchronizes users, cycles, capacities, issues, state changes, and
// derived blocked periods from the tracker.
func (s *Syncer) Run() error {
	started := time.Now()

	viewer, err := s.client.TestConnection()
	if err != nil {
		return fmt.Errorf("failed to connect to tracker: %w", err)
	}
	log.Info().Str("viewer", viewer.Name).Msg("Starting tracker sync")

	users, err := s.client.FetchUsers()
	if err != nil {
		return fmt.Errorf("failed to fetch users: %w", err)
	}
	for _, u := range users {
		if err := s.store.UpsertUser(MapUser(u)); err != nil {
			return fmt.Errorf("failed to store user %s: %w", u.ID, err)
		}
	}

	teams, err := s.client.FetchTeams()
	if err != nil {
		return fmt.Errorf("failed to fetch teams: %w", err)
	}
	for _, team := range teams {
		for _, dto := range team.Cycles.Nodes {
			cycle, err := MapCycle(dto)
			if err != nil {
				log.Warn().Err(err).Str("team", team.Name).Msg("Skipping cycle with bad dates")
				continue
			}
			if err := s.store.UpsertCycle(cycle); err != nil {
				return fmt.Errorf("failed to store cycle %s: %w", cycle.ID, err)
			}
			s.seedCapacities(cycle.ID, team.Members.Nodes)
		}
	}

	issues, err := s.fetchAllIssues(teams)
	if err != nil {
		return err
	}

	blocked := metrics.NewBlockedStateSet(s.opts.BlockedStates)
	issueCount := 0
	for _, dto := range issues {
		issue, err := MapIssue(dto)
		if err != nil {
			log.Warn().Err(err).Msg("Skipping issue with bad data")
			continue
		}
		if err := s.store.UpsertIssue(issue); err != nil {
			return fmt.Errorf("failed to store issue %s: %w", issue.ID, err)
		}

		changes := MapStateChanges(dto)
		sort.Slice(changes, func(i, j int) bool {
			return changes[i].CreatedAt.Before(changes[j].CreatedAt)
		})
		for _, change := range changes {
			if err := s.store.UpsertStateChange(change); err != nil {
				return fmt.Errorf("failed to store state change for %s: %w", issue.ID, err)
			}
		}
		for _, period := range metrics.BuildBlockedPeriods(issue.ID, changes, blocked) {
			if err := s.store.UpsertBlockedPeriod(period); err != nil {
				return fmt.Errorf("failed to store blocked period for %s: %w", issue.ID, err)
			}
		}
		issueCount++
	}

	log.Info().
		Int("users", len(users)).
		Int("teams", len(teams)).
		Int("issues", issueCount).
		Dur("took", time.Since(started)).
		Msg("Tracker sync complete")
	return nil
}

// fetchAllIssues pulls issues for every team with bounded concurrency.
func (s *Syncer) fetchAllIssues(teams []TeamDTO) ([]IssueDTO, error) {
	var mu sync.Mutex
	var all []IssueDTO

	g := new(errgroup.Group)
	g.SetLimit(s.opts.FetchConcurrency)

	for _, team := range teams {
		team := team
		g.Go(func() error {
			issues, err := s.client.FetchTeamIssues(team.ID)
			if err != nil {
				return fmt.Errorf("failed to fetch issues for team %s: %w", team.ID, err)
			}
			mu.Lock()
			all = append(all, issues...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic order regardless of fetch completion order.
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all, nil
}

// seedCapacities writes a default capacity record for each team member in the
// cycle. Seeding failures are non-fatal; utilization then reads as 0.
func (s *Syncer) seedCapacities(cycleID string, members []UserDTO) {
	if s.opts.DefaultCapacityHours <= 0 {
		return
	}
	for _, m := range members {
		hours := s.opts.DefaultCapacityHours
		capacity := store.Capacity{
			CycleID: cycleID,
			UserID:  m.ID,
			Hours:   &hours,
		}
		if s.opts.DefaultCapacityPoints > 0 {
			points := s.opts.DefaultCapacityPoints
			capacity.Points = &points
		}
		err := s.store.UpsertCapacity(capacity)
		if err != nil {
			log.Warn().Err(err).Str("cycle", cycleID).Str("user", m.ID).Msg("Failed to seed capacity")
		}
	}
}
