package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

// DB is the SQLite-backed entity store. Raw entities are written by the
// tracker sync, derived entities by the aggregation and forecasting core.
type DB struct {
	conn *sql.DB
	path string
}

// Open opens (or creates) the database file under dataDir and applies any
// pending schema migrations.
func Open(dataDir string) (*DB, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	path := filepath.Join(dataDir, "cyclecast.db")
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	db := &DB{conn: conn, path: path}
	if err := db.migrate(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	if db.conn != nil {
		return db.conn.Close()
	}
	return nil
}

// Path returns the database file location.
func (db *DB) Path() string {
	return db.path
}

// migrations is append-only. Never edit a shipped entry; add a new version
// instead so existing databases upgrade in place.
var migrations = []string{
	// v1: raw entities
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT ''
	);
	CREATE TABLE IF NOT EXISTS cycles (
		id TEXT PRIMARY KEY,
		number INTEGER NOT NULL DEFAULT 0,
		name TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		progress REAL,
		wip_limit INTEGER
	);
	CREATE TABLE IF NOT EXISTS issues (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		priority INTEGER NOT NULL DEFAULT 0,
		estimate REAL,
		created_at TEXT NOT NULL,
		started_at TEXT,
		completed_at TEXT,
		cycle_id TEXT,
		assignee_id TEXT,
		team TEXT,
		project TEXT,
		initiative TEXT,
		ideal_hours REAL,
		actual_hours REAL
	);
	CREATE INDEX IF NOT EXISTS idx_issues_cycle ON issues(cycle_id);
	CREATE INDEX IF NOT EXISTS idx_issues_assignee ON issues(assignee_id);
	CREATE TABLE IF NOT EXISTS blocked_periods (
		issue_id TEXT NOT NULL,
		started_at TEXT NOT NULL,
		ended_at TEXT,
		PRIMARY KEY (issue_id, started_at)
	);
	CREATE TABLE IF NOT EXISTS state_changes (
		issue_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		from_state TEXT NOT NULL DEFAULT '',
		to_state TEXT NOT NULL DEFAULT '',
		to_type TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (issue_id, created_at, to_state)
	);
	CREATE TABLE IF NOT EXISTS capacities (
		cycle_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		hours REAL,
		points REAL,
		PRIMARY KEY (cycle_id, user_id)
	);`,

	// v2: derived entities
	`CREATE TABLE IF NOT EXISTS cycle_metrics (
		cycle_id TEXT PRIMARY KEY,
		total_story_points REAL NOT NULL,
		completed_story_points REAL NOT NULL,
		throughput INTEGER NOT NULL,
		velocity REAL NOT NULL,
		avg_cycle_time_hours REAL NOT NULL,
		avg_lead_time_hours REAL NOT NULL,
		avg_blocked_hours REAL NOT NULL,
		dominant_team TEXT NOT NULL DEFAULT '',
		dominant_project TEXT NOT NULL DEFAULT '',
		dominant_initiative TEXT NOT NULL DEFAULT '',
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS user_metrics (
		user_id TEXT NOT NULL,
		cycle_id TEXT NOT NULL,
		story_points_completed REAL NOT NULL,
		avg_cycle_time_hours REAL NOT NULL,
		velocity REAL NOT NULL,
		capacity_utilization REAL NOT NULL,
		efficiency_ratio REAL NOT NULL,
		PRIMARY KEY (user_id, cycle_id)
	);
	CREATE TABLE IF NOT EXISTS daily_metrics (
		cycle_id TEXT NOT NULL,
		day TEXT NOT NULL,
		wip_count INTEGER NOT NULL,
		blocked_count INTEGER NOT NULL,
		completed_points REAL NOT NULL,
		remaining_ideal_hours REAL NOT NULL,
		PRIMARY KEY (cycle_id, day)
	);
	CREATE TABLE IF NOT EXISTS forecasts (
		id TEXT PRIMARY KEY,
		simulation_date TEXT NOT NULL,
		story_points REAL NOT NULL,
		confidence_50 REAL NOT NULL,
		confidence_80 REAL NOT NULL,
		confidence_95 REAL NOT NULL,
		min_completion_date TEXT NOT NULL,
		max_completion_date TEXT NOT NULL,
		expected_completion_date TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_forecasts_date ON forecasts(simulation_date);`,
}

func (db *DB) migrate() error {
	if _, err := db.conn.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY)`); err != nil {
		return err
	}

	var current int
	if err := db.conn.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_version`).Scan(&current); err != nil {
		return err
	}

	for v := current; v < len(migrations); v++ {
		if _, err := db.conn.Exec(migrations[v]); err != nil {
			return fmt.Errorf("migration v%d failed: %w", v+1, err)
		}
		if _, err := db.conn.Exec(`INSERT INTO schema_version (version) VALUES (?)`, v+1); err != nil {
			return err
		}
		log.Info().Int("version", v+1).Msg("Applied schema migration")
	}
	return nil
}
