package linear

import "time"

// Config holds the connection settings for the Linear GraphQL API.
type Config struct {
	BaseURL string
	APIKey  string

	// RequestDelay throttles successive data queries to stay inside the API
	// rate budget. Metadata queries are allowed to burst.
	RequestDelay time.Duration
}

// Client is the interface for the issue-tracker data source. Implementations
// return already-paginated record sets; pagination policy is not the core's
// concern.
type Client interface {
	TestConnection() (ViewerDTO, error)
	FetchUsers() ([]UserDTO, error)
	FetchTeams() ([]TeamDTO, error)
	FetchTeamIssues(teamID string) ([]IssueDTO, error)
}

// NewClient creates a Linear API client from the provided configuration.
func NewClient(cfg Config) Client {
	return newGraphQLClient(cfg)
}
