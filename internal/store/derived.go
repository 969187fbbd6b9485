package store

import "time"

const dayLayout = "2006-01-02"

// UpsertCycleMetrics replaces the derived record for a cycle.
func (db *DB) UpsertCycleMetrics(m CycleMetrics) error {
	_, err := db.conn.Exec(`
		INSERT INTO cycle_metrics (cycle_id, total_story_points, completed_story_points,
			throughput, velocity, avg_cycle_time_hours, avg_lead_time_hours, avg_blocked_hours,
			dominant_team, dominant_project, dominant_initiative, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(cycle_id) DO UPDATE SET
			total_story_points = excluded.total_story_points,
			completed_story_points = excluded.completed_story_points,
			throughput = excluded.throughput, velocity = excluded.velocity,
			avg_cycle_time_hours = excluded.avg_cycle_time_hours,
			avg_lead_time_hours = excluded.avg_lead_time_hours,
			avg_blocked_hours = excluded.avg_blocked_hours,
			dominant_team = excluded.dominant_team,
			dominant_project = excluded.dominant_project,
			dominant_initiative = excluded.dominant_initiative,
			start_date = excluded.start_date, end_date = excluded.end_date`,
		m.CycleID, m.TotalStoryPoints, m.CompletedStoryPoints, m.Throughput, m.Velocity,
		m.AvgCycleTimeHours, m.AvgLeadTimeHours, m.AvgBlockedHours,
		m.DominantTeam, m.DominantProject, m.DominantInitiative,
		formatTime(m.StartDate), formatTime(m.EndDate))
	return err
}

// CycleMetricsAll returns every derived cycle record ordered by start date.
func (db *DB) CycleMetricsAll() ([]CycleMetrics, error) {
	rows, err := db.conn.Query(`
		SELECT cycle_id, total_story_points, completed_story_points, throughput, velocity,
			avg_cycle_time_hours, avg_lead_time_hours, avg_blocked_hours,
			dominant_team, dominant_project, dominant_initiative, start_date, end_date
		FROM cycle_metrics ORDER BY start_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []CycleMetrics
	for rows.Next() {
		var m CycleMetrics
		var start, end string
		if err := rows.Scan(&m.CycleID, &m.TotalStoryPoints, &m.CompletedStoryPoints,
			&m.Throughput, &m.Velocity, &m.AvgCycleTimeHours, &m.AvgLeadTimeHours,
			&m.AvgBlockedHours, &m.DominantTeam, &m.DominantProject, &m.DominantInitiative,
			&start, &end); err != nil {
			return nil, err
		}
		if m.StartDate, err = parseTime(start); err != nil {
			return nil, err
		}
		if m.EndDate, err = parseTime(end); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// UpsertUserMetrics replaces the derived record for a (user, cycle) pair.
func (db *DB) UpsertUserMetrics(m UserMetrics) error {
	_, err := db.conn.Exec(`
		INSERT INTO user_metrics (user_id, cycle_id, story_points_completed,
			avg_cycle_time_hours, velocity, capacity_utilization, efficiency_ratio)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, cycle_id) DO UPDATE SET
			story_points_completed = excluded.story_points_completed,
			avg_cycle_time_hours = excluded.avg_cycle_time_hours,
			velocity = excluded.velocity,
			capacity_utilization = excluded.capacity_utilization,
			efficiency_ratio = excluded.efficiency_ratio`,
		m.UserID, m.CycleID, m.StoryPointsCompleted, m.AvgCycleTimeHours,
		m.Velocity, m.CapacityUtilization, m.EfficiencyRatio)
	return err
}

// UserMetricsAll returns every derived user record.
func (db *DB) UserMetricsAll() ([]UserMetrics, error) {
	rows, err := db.conn.Query(`
		SELECT user_id, cycle_id, story_points_completed, avg_cycle_time_hours,
			velocity, capacity_utilization, efficiency_ratio
		FROM user_metrics ORDER BY cycle_id, user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []UserMetrics
	for rows.Next() {
		var m UserMetrics
		if err := rows.Scan(&m.UserID, &m.CycleID, &m.StoryPointsCompleted,
			&m.AvgCycleTimeHours, &m.Velocity, &m.CapacityUtilization,
			&m.EfficiencyRatio); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// UpsertDailyMetrics replaces the derived record for a (cycle, day) pair.
func (db *DB) UpsertDailyMetrics(m DailyMetrics) error {
	_, err := db.conn.Exec(`
		INSERT INTO daily_metrics (cycle_id, day, wip_count, blocked_count,
			completed_points, remaining_ideal_hours)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cycle_id, day) DO UPDATE SET
			wip_count = excluded.wip_count, blocked_count = excluded.blocked_count,
			completed_points = excluded.completed_points,
			remaining_ideal_hours = excluded.remaining_ideal_hours`,
		m.CycleID, m.Day.UTC().Format(dayLayout), m.WIPCount, m.BlockedCount,
		m.CompletedPoints, m.RemainingIdealHours)
	return err
}

// DailyMetricsByCycle returns the per-day records for a cycle in day order.
func (db *DB) DailyMetricsByCycle(cycleID string) ([]DailyMetrics, error) {
	rows, err := db.conn.Query(`
		SELECT cycle_id, day, wip_count, blocked_count, completed_points, remaining_ideal_hours
		FROM daily_metrics WHERE cycle_id = ? ORDER BY day`, cycleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []DailyMetrics
	for rows.Next() {
		var m DailyMetrics
		var day string
		if err := rows.Scan(&m.CycleID, &day, &m.WIPCount, &m.BlockedCount,
			&m.CompletedPoints, &m.RemainingIdealHours); err != nil {
			return nil, err
		}
		if m.Day, err = time.ParseInLocation(dayLayout, day, time.UTC); err != nil {
			return nil, err
		}
		metrics = append(metrics, m)
	}
	return metrics, rows.Err()
}

// InsertForecast appends a forecast record. Forecasts are never overwritten.
func (db *DB) InsertForecast(f Forecast) error {
	_, err := db.conn.Exec(`
		INSERT INTO forecasts (id, simulation_date, story_points, confidence_50,
			confidence_80, confidence_95, min_completion_date, max_completion_date,
			expected_completion_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.ID, formatTime(f.SimulationDate), f.StoryPoints, f.Confidence50,
		f.Confidence80, f.Confidence95, formatTime(f.MinCompletionDate),
		formatTime(f.MaxCompletionDate), formatTime(f.ExpectedCompletionDate))
	return err
}

// Forecasts returns every stored forecast ordered by simulation date.
func (db *DB) Forecasts() ([]Forecast, error) {
	rows, err := db.conn.Query(`
		SELECT id, simulation_date, story_points, confidence_50, confidence_80,
			confidence_95, min_completion_date, max_completion_date, expected_completion_date
		FROM forecasts ORDER BY simulation_date`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var forecasts []Forecast
	for rows.Next() {
		var f Forecast
		var sim, minDate, maxDate, expected string
		if err := rows.Scan(&f.ID, &sim, &f.StoryPoints, &f.Confidence50, &f.Confidence80,
			&f.Confidence95, &minDate, &maxDate, &expected); err != nil {
			return nil, err
		}
		if f.SimulationDate, err = parseTime(sim); err != nil {
			return nil, err
		}
		if f.MinCompletionDate, err = parseTime(minDate); err != nil {
			return nil, err
		}
		if f.MaxCompletionDate, err = parseTime(maxDate); err != nil {
			return nil, err
		}
		if f.ExpectedCompletionDate, err = parseTime(expected); err != nil {
			return nil, err
		}
		forecasts = append(forecasts, f)
	}
	return forecasts, rows.Err()
}
