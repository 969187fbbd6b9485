package store

import (
	"database/sql"
	"fmt"
	"time"
)

const timeLayout = time.RFC3339Nano

// UpsertUser writes a user record keyed by id.
func (db *DB) UpsertUser(u User) error {
	_, err := db.conn.Exec(`
		INSERT INTO users (id, name, email) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, email = excluded.email`,
		u.ID, u.Name, u.Email)
	return err
}

// Users returns all known users.
func (db *DB) Users() ([]User, error) {
	rows, err := db.conn.Query(`SELECT id, name, email FROM users ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpsertCycle writes a cycle record keyed by id.
func (db *DB) UpsertCycle(c Cycle) error {
	_, err := db.conn.Exec(`
		INSERT INTO cycles (id, number, name, start_date, end_date, progress, wip_limit)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			number = excluded.number, name = excluded.name,
			start_date = excluded.start_date, end_date = excluded.end_date,
			progress = excluded.progress, wip_limit = excluded.wip_limit`,
		c.ID, c.Number, c.Name, formatTime(c.StartDate), formatTime(c.EndDate),
		nullFloat(c.Progress), nullInt(c.WIPLimit))
	return err
}

// Cycles returns all cycles ordered by start date.
func (db *DB) Cycles() ([]Cycle, error) {
	rows, err := db.conn.Query(`
		SELECT id, number, name, start_date, end_date, progress, wip_limit
		FROM cycles ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cycles []Cycle
	for rows.Next() {
		var c Cycle
		var start, end string
		var progress sql.NullFloat64
		var wipLimit sql.NullInt64
		if err := rows.Scan(&c.ID, &c.Number, &c.Name, &start, &end, &progress, &wipLimit); err != nil {
			return nil, err
		}
		if c.StartDate, err = parseTime(start); err != nil {
			return nil, err
		}
		if c.EndDate, err = parseTime(end); err != nil {
			return nil, err
		}
		if progress.Valid {
			v := progress.Float64
			c.Progress = &v
		}
		if wipLimit.Valid {
			v := int(wipLimit.Int64)
			c.WIPLimit = &v
		}
		cycles = append(cycles, c)
	}
	return cycles, rows.Err()
}

// UpsertIssue writes an issue record keyed by id.
func (db *DB) UpsertIssue(i Issue) error {
	_, err := db.conn.Exec(`
		INSERT INTO issues (id, title, state, priority, estimate, created_at, started_at,
			completed_at, cycle_id, assignee_id, team, project, initiative, ideal_hours, actual_hours)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title, state = excluded.state, priority = excluded.priority,
			estimate = excluded.estimate, created_at = excluded.created_at,
			started_at = excluded.started_at, completed_at = excluded.completed_at,
			cycle_id = excluded.cycle_id, assignee_id = excluded.assignee_id,
			team = excluded.team, project = excluded.project, initiative = excluded.initiative,
			ideal_hours = excluded.ideal_hours, actual_hours = excluded.actual_hours`,
		i.ID, i.Title, i.State, i.Priority, nullFloat(i.Estimate), formatTime(i.CreatedAt),
		nullTime(i.StartedAt), nullTime(i.CompletedAt), nullString(i.CycleID),
		nullString(i.AssigneeID), nullString(i.Team), nullString(i.Project),
		nullString(i.Initiative), nullFloat(i.IdealHours), nullFloat(i.ActualHours))
	return err
}

// IssuesByCycle returns all issues assigned to the given cycle, in creation order.
func (db *DB) IssuesByCycle(cycleID string) ([]Issue, error) {
	return db.queryIssues(`WHERE cycle_id = ?`, cycleID)
}

// Issues returns every stored issue.
func (db *DB) Issues() ([]Issue, error) {
	return db.queryIssues(``)
}

func (db *DB) queryIssues(where string, args ...any) ([]Issue, error) {
	rows, err := db.conn.Query(fmt.Sprintf(`
		SELECT id, title, state, priority, estimate, created_at, started_at, completed_at,
			cycle_id, assignee_id, team, project, initiative, ideal_hours, actual_hours
		FROM issues %s ORDER BY created_at, id`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var issues []Issue
	for rows.Next() {
		var i Issue
		var created string
		var started, completed, cycleID, assigneeID, team, project, initiative sql.NullString
		var estimate, idealHours, actualHours sql.NullFloat64
		if err := rows.Scan(&i.ID, &i.Title, &i.State, &i.Priority, &estimate, &created,
			&started, &completed, &cycleID, &assigneeID, &team, &project, &initiative,
			&idealHours, &actualHours); err != nil {
			return nil, err
		}
		if i.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		if i.StartedAt, err = parseNullTime(started); err != nil {
			return nil, err
		}
		if i.CompletedAt, err = parseNullTime(completed); err != nil {
			return nil, err
		}
		i.Estimate = floatPtr(estimate)
		i.IdealHours = floatPtr(idealHours)
		i.ActualHours = floatPtr(actualHours)
		i.CycleID = stringPtr(cycleID)
		i.AssigneeID = stringPtr(assigneeID)
		i.Team = stringPtr(team)
		i.Project = stringPtr(project)
		i.Initiative = stringPtr(initiative)
		issues = append(issues, i)
	}
	return issues, rows.Err()
}

// UpsertBlockedPeriod writes a blocked period keyed by (issue, start).
func (db *DB) UpsertBlockedPeriod(b BlockedPeriod) error {
	_, err := db.conn.Exec(`
		INSERT INTO blocked_periods (issue_id, started_at, ended_at) VALUES (?, ?, ?)
		ON CONFLICT(issue_id, started_at) DO UPDATE SET ended_at = excluded.ended_at`,
		b.IssueID, formatTime(b.StartedAt), nullTime(b.EndedAt))
	return err
}

// BlockedPeriodsByIssue returns the blocked history for one issue in start order.
func (db *DB) BlockedPeriodsByIssue(issueID string) ([]BlockedPeriod, error) {
	rows, err := db.conn.Query(`
		SELECT issue_id, started_at, ended_at FROM blocked_periods
		WHERE issue_id = ? ORDER BY started_at`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBlockedPeriods(rows)
}

// BlockedPeriods returns every stored blocked period grouped by issue id.
func (db *DB) BlockedPeriods() (map[string][]BlockedPeriod, error) {
	rows, err := db.conn.Query(`
		SELECT issue_id, started_at, ended_at FROM blocked_periods ORDER BY issue_id, started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	periods, err := scanBlockedPeriods(rows)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]BlockedPeriod)
	for _, p := range periods {
		grouped[p.IssueID] = append(grouped[p.IssueID], p)
	}
	return grouped, nil
}

func scanBlockedPeriods(rows *sql.Rows) ([]BlockedPeriod, error) {
	var periods []BlockedPeriod
	for rows.Next() {
		var b BlockedPeriod
		var started string
		var ended sql.NullString
		if err := rows.Scan(&b.IssueID, &started, &ended); err != nil {
			return nil, err
		}
		var err error
		if b.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		if b.EndedAt, err = parseNullTime(ended); err != nil {
			return nil, err
		}
		periods = append(periods, b)
	}
	return periods, rows.Err()
}

// UpsertStateChange writes a state transition keyed by (issue, time, to-state).
func (db *DB) UpsertStateChange(s StateChange) error {
	_, err := db.conn.Exec(`
		INSERT INTO state_changes (issue_id, created_at, from_state, to_state, to_type)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(issue_id, created_at, to_state) DO UPDATE SET
			from_state = excluded.from_state, to_type = excluded.to_type`,
		s.IssueID, formatTime(s.CreatedAt), s.FromState, s.ToState, s.ToType)
	return err
}

// StateChangesByIssue returns an issue's transitions in chronological order.
func (db *DB) StateChangesByIssue(issueID string) ([]StateChange, error) {
	rows, err := db.conn.Query(`
		SELECT issue_id, created_at, from_state, to_state, to_type FROM state_changes
		WHERE issue_id = ? ORDER BY created_at`, issueID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var changes []StateChange
	for rows.Next() {
		var s StateChange
		var created string
		if err := rows.Scan(&s.IssueID, &created, &s.FromState, &s.ToState, &s.ToType); err != nil {
			return nil, err
		}
		if s.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		changes = append(changes, s)
	}
	return changes, rows.Err()
}

// UpsertCapacity writes a capacity record keyed by (cycle, user).
func (db *DB) UpsertCapacity(c Capacity) error {
	_, err := db.conn.Exec(`
		INSERT INTO capacities (cycle_id, user_id, hours, points) VALUES (?, ?, ?, ?)
		ON CONFLICT(cycle_id, user_id) DO UPDATE SET
			hours = excluded.hours, points = excluded.points`,
		c.CycleID, c.UserID, nullFloat(c.Hours), nullFloat(c.Points))
	return err
}

// CapacitiesByCycle returns capacities for a cycle keyed by user id.
func (db *DB) CapacitiesByCycle(cycleID string) (map[string]Capacity, error) {
	rows, err := db.conn.Query(`
		SELECT cycle_id, user_id, hours, points FROM capacities WHERE cycle_id = ?`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	capacities := make(map[string]Capacity)
	for rows.Next() {
		var c Capacity
		var hours, points sql.NullFloat64
		if err := rows.Scan(&c.CycleID, &c.UserID, &hours, &points); err != nil {
			return nil, err
		}
		c.Hours = floatPtr(hours)
		c.Points = floatPtr(points)
		capacities[c.UserID] = c
	}
	return capacities, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := parseTime(s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullInt(i *int) any {
	if i == nil {
		return nil
	}
	return *i
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func floatPtr(f sql.NullFloat64) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Float64
	return &v
}

func stringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
