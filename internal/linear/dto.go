package linear

import "time"

// ViewerDTO identifies the authenticated account.
type ViewerDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserDTO is a workspace member.
type UserDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// CycleDTO is a sprint within a team.
type CycleDTO struct {
	ID       string   `json:"id"`
	Number   int      `json:"number"`
	Name     string   `json:"name"`
	StartsAt string   `json:"startsAt"`
	EndsAt   string   `json:"endsAt"`
	Progress *float64 `json:"progress,omitempty"`
}

// TeamDTO is a team with its cycles and member references.
type TeamDTO struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Cycles struct {
		Nodes []CycleDTO `json:"nodes"`
	} `json:"cycles"`
	Members struct {
		Nodes []UserDTO `json:"nodes"`
	} `json:"members"`
}

// StateDTO is a workflow state reference.
type StateDTO struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// HistoryDTO is one workflow transition in an issue's history.
type HistoryDTO struct {
	CreatedAt string    `json:"createdAt"`
	FromState *StateDTO `json:"fromState"`
	ToState   *StateDTO `json:"toState"`
}

// RefDTO is a bare id reference to a related entity.
type RefDTO struct {
	ID string `json:"id"`
}

// NamedRefDTO is a name-bearing reference to a related entity.
type NamedRefDTO struct {
	Name string `json:"name"`
}

// ProjectRefDTO is a project reference. Initiatives attach to projects in the
// Linear schema, not to issues, so the issue's initiative rides along here.
type ProjectRefDTO struct {
	Name       string       `json:"name"`
	Initiative *NamedRefDTO `json:"initiative"`
}

// IssueDTO is a single work item as returned by the issues query.
type IssueDTO struct {
	ID          string         `json:"id"`
	Title       string         `json:"title"`
	State       StateDTO       `json:"state"`
	Priority    float64        `json:"priority"`
	Estimate    *float64       `json:"estimate"`
	CreatedAt   string         `json:"createdAt"`
	StartedAt   string         `json:"startedAt"`
	CompletedAt string         `json:"completedAt"`
	Cycle       *RefDTO        `json:"cycle"`
	Assignee    *RefDTO        `json:"assignee"`
	Team        *NamedRefDTO   `json:"team"`
	Project     *ProjectRefDTO `json:"project"`
	History     struct {
		Nodes []HistoryDTO `json:"nodes"`
	} `json:"history"`
}

// ParseTime parses Linear's ISO-8601 timestamps.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
