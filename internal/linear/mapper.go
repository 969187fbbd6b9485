package linear

import (
	"fmt"
	"time"

	"cyclecast/internal/store"
)

// MapUser converts a user DTO to its store entity.
func MapUser(dto UserDTO) store.User {
	return store.User{ID: dto.ID, Name: dto.Name, Email: dto.Email}
}

// MapCycle converts a cycle DTO to its store entity.
func MapCycle(dto CycleDTO) (store.Cycle, error) {
	start, err := ParseTime(dto.StartsAt)
	if err != nil {
		return store.Cycle{}, fmt.Errorf("cycle %s: invalid startsAt: %w", dto.ID, err)
	}
	end, err := ParseTime(dto.EndsAt)
	if err != nil {
		return store.Cycle{}, fmt.Errorf("cycle %s: invalid endsAt: %w", dto.ID, err)
	}
	return store.Cycle{
		ID:        dto.ID,
		Number:    dto.Number,
		Name:      dto.Name,
		StartDate: start,
		EndDate:   end,
		Progress:  dto.Progress,
	}, nil
}

// MapIssue converts an issue DTO to its store entity. Optional timestamps
// that fail to parse are dropped rather than failing the whole issue.
func MapIssue(dto IssueDTO) (store.Issue, error) {
	created, err := ParseTime(dto.CreatedAt)
	if err != nil {
		return store.Issue{}, fmt.Errorf("issue %s: invalid createdAt: %w", dto.ID, err)
	}

	issue := store.Issue{
		ID:          dto.ID,
		Title:       dto.Title,
		State:       dto.State.Name,
		Priority:    int(dto.Priority),
		Estimate:    dto.Estimate,
		CreatedAt:   created,
		StartedAt:   optionalTime(dto.StartedAt),
		CompletedAt: optionalTime(dto.CompletedAt),
	}
	if dto.Cycle != nil {
		issue.CycleID = &dto.Cycle.ID
	}
	if dto.Assignee != nil {
		issue.AssigneeID = &dto.Assignee.ID
	}
	if dto.Team != nil {
		issue.Team = &dto.Team.Name
	}
	if dto.Project != nil {
		issue.Project = &dto.Project.Name
		if dto.Project.Initiative != nil {
			issue.Initiative = &dto.Project.Initiative.Name
		}
	}
	return issue, nil
}

// MapStateChanges converts an issue's workflow history to ordered store
// entities. Entries with unparseable timestamps or no target state are
// skipped.
func MapStateChanges(dto IssueDTO) []store.StateChange {
	var changes []store.StateChange
	for _, h := range dto.History.Nodes {
		if h.ToState == nil {
			continue
		}
		at, err := ParseTime(h.CreatedAt)
		if err != nil {
			continue
		}
		change := store.StateChange{
			IssueID:   dto.ID,
			CreatedAt: at,
			ToState:   h.ToState.Name,
			ToType:    h.ToState.Type,
		}
		if h.FromState != nil {
			change.FromState = h.FromState.Name
		}
		changes = append(changes, change)
	}
	return changes
}

func optionalTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := ParseTime(s)
	if err != nil {
		return nil
	}
	return &t
}
