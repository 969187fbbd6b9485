package linear

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://api.linear.app/graphql"

type graphqlClient struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.Mutex // issue fetches run concurrently per team
	lastRequest time.Time
}

func newGraphQLClient(cfg Config) Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.RequestDelay == 0 {
		cfg.RequestDelay = time.Second
	}
	return &graphqlClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message string `json:"message"`
}

func (c *graphqlClient) throttle(isMetadata bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if isMetadata {
		c.lastRequest = time.Now()
		return
	}
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.cfg.RequestDelay {
		wait := c.cfg.RequestDelay - elapsed
		log.Debug().Dur("wait", wait).Msg("Throttling Linear request")
		time.Sleep(wait)
	}
	c.lastRequest = time.Now()
}

// execute posts one GraphQL query and unmarshals the "data" payload into out.
func (c *graphqlClient) execute(query string, variables map[string]any, isMetadata bool, out any) error {
	c.throttle(isMetadata)

	body, err := json.Marshal(graphqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode query: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, c.cfg.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("linear API returned status %d: %s", resp.StatusCode, truncate(raw, 256))
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors []graphqlError  `json:"errors"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return fmt.Errorf("linear API error: %s", envelope.Errors[0].Message)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode data payload: %w", err)
	}
	return nil
}

func (c *graphqlClient) TestConnection() (ViewerDTO, error) {
	query := `query { viewer { id name email } }`
	var data struct {
		Viewer ViewerDTO `json:"viewer"`
	}
	if err := c.execute(query, nil, true, &data); err != nil {
		return ViewerDTO{}, err
	}
	log.Info().Str("viewer", data.Viewer.Name).Msg("Connected to Linear")
	return data.Viewer, nil
}

func (c *graphqlClient) FetchUsers() ([]UserDTO, error) {
	query := `query {
		users(first: 100) {
			nodes { id name email }
		}
	}`
	var data struct {
		Users struct {
			Nodes []UserDTO `json:"nodes"`
		} `json:"users"`
	}
	if err := c.execute(query, nil, true, &data); err != nil {
		return nil, err
	}
	return data.Users.Nodes, nil
}

func (c *graphqlClient) FetchTeams() ([]TeamDTO, error) {
	query := `query {
		teams(first: 50) {
			nodes {
				id
				name
				cycles(first: 50) {
					nodes { id number name startsAt endsAt progress }
				}
				members(first: 50) {
					nodes { id name email }
				}
			}
		}
	}`
	var data struct {
		Teams struct {
			Nodes []TeamDTO `json:"nodes"`
		} `json:"teams"`
	}
	if err := c.execute(query, nil, true, &data); err != nil {
		return nil, err
	}
	return data.Teams.Nodes, nil
}

func (c *graphqlClient) FetchTeamIssues(teamID string) ([]IssueDTO, error) {
	query := `query($teamId: String!) {
		team(id: $teamId) {
			issues(first: 250) {
				nodes {
					id
					title
					state { name type }
					priority
					estimate
					createdAt
					startedAt
					completedAt
					cycle { id }
					assignee { id }
					team { name }
					project { name initiative { name } }
					history(first: 100) {
						nodes {
							createdAt
							fromState { name type }
							toState { name type }
						}
					}
				}
			}
		}
	}`
	var data struct {
		Team struct {
			Issues struct {
				Nodes []IssueDTO `json:"nodes"`
			} `json:"issues"`
		} `json:"team"`
	}
	if err := c.execute(query, map[string]any{"teamId": teamID}, false, &data); err != nil {
		return nil, err
	}
	return data.Team.Issues.Nodes, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
