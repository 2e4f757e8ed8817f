package store

import (
	"database/sql"
	"fmt"
	"log"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Initial schema",
		SQL: `
CREATE TABLE IF NOT EXISTS analysis_runs (
    run_id TEXT PRIMARY KEY,
    source TEXT NOT NULL,
    started_at DATETIME NOT NULL,
    elapsed_ms INTEGER NOT NULL,
    records_loaded INTEGER NOT NULL,
    entities INTEGER NOT NULL,
    complete_records INTEGER NOT NULL,
    incomplete_records INTEGER NOT NULL,
    missing_records INTEGER NOT NULL,
    imputed_lon_min INTEGER NOT NULL,
    imputed_lon_max INTEGER NOT NULL,
    extreme_low INTEGER NOT NULL,
    extreme_high INTEGER NOT NULL,
    coverage_fraction REAL NOT NULL,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS entity_summaries (
    run_id TEXT NOT NULL REFERENCES analysis_runs(run_id),
    harpnum INTEGER NOT NULL,
    records INTEGER NOT NULL,
    first_observed DATETIME NOT NULL,
    last_observed DATETIME NOT NULL,
    lifetime_ms INTEGER NOT NULL,
    complete_records INTEGER NOT NULL,
    incomplete_records INTEGER NOT NULL,
    missing_records INTEGER NOT NULL,
    nominal_quality INTEGER NOT NULL,
    imputed_lon_min INTEGER NOT NULL,
    imputed_lon_max INTEGER NOT NULL,
    lon_min_unimputable BOOLEAN NOT NULL DEFAULT FALSE,
    lon_max_unimputable BOOLEAN NOT NULL DEFAULT FALSE,
    max_abs_lon REAL,
    longest_gap INTEGER NOT NULL,
    longest_gap_ms INTEGER NOT NULL,
    PRIMARY KEY (run_id, harpnum)
);

CREATE TABLE IF NOT EXISTS class_spans (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES analysis_runs(run_id),
    harpnum INTEGER NOT NULL,
    class TEXT NOT NULL,
    start_index INTEGER NOT NULL,
    end_index INTEGER NOT NULL,
    record_count INTEGER NOT NULL,
    started_at DATETIME NOT NULL,
    ended_at DATETIME NOT NULL,
    elapsed_ms INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS entity_issues (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES analysis_runs(run_id),
    harpnum INTEGER NOT NULL,
    stage TEXT NOT NULL,
    detail TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_summaries_run ON entity_summaries(run_id);
CREATE INDEX IF NOT EXISTS idx_spans_run_harp ON class_spans(run_id, harpnum);
CREATE INDEX IF NOT EXISTS idx_issues_run ON entity_issues(run_id);
`,
	},
	{
		Version:     2,
		Description: "Coverage grid and binned proportions",
		SQL: `
CREATE TABLE IF NOT EXISTS coverage_points (
    run_id TEXT NOT NULL REFERENCES analysis_runs(run_id),
    slot_time DATETIME NOT NULL,
    observed BOOLEAN NOT NULL,
    PRIMARY KEY (run_id, slot_time)
);

CREATE TABLE IF NOT EXISTS bin_proportions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id TEXT NOT NULL REFERENCES analysis_runs(run_id),
    dimension TEXT NOT NULL,
    lo REAL NOT NULL,
    hi REAL NOT NULL,
    complete_records INTEGER NOT NULL,
    incomplete_records INTEGER NOT NULL,
    missing_records INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_bins_run_dim ON bin_proportions(run_id, dimension);
`,
	},
	{
		Version:     3,
		Description: "Augmented per-record table",
		SQL: `
CREATE TABLE IF NOT EXISTS analyzed_records (
    run_id TEXT NOT NULL REFERENCES analysis_runs(run_id),
    harpnum INTEGER NOT NULL,
    observed_at DATETIME NOT NULL,
    class TEXT NOT NULL,
    quality TEXT NOT NULL,
    lon_min REAL,
    lon_max REAL,
    lon_min_imputed BOOLEAN NOT NULL,
    lon_max_imputed BOOLEAN NOT NULL,
    extreme_west BOOLEAN NOT NULL,
    extreme_east BOOLEAN NOT NULL,
    max_abs_lon REAL,
    lifespan_frac REAL NOT NULL,
    PRIMARY KEY (run_id, harpnum, observed_at)
);
`,
	},
}

func (s *Store) Migrate() error {
	if err := s.ensureMigrationsTable(); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	applied, err := s.getAppliedMigrations()
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		log.Printf("migrations: applying %d - %s", m.Version, m.Description)

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}

		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}

		log.Printf("migrations: completed %d", m.Version)
	}

	return nil
}

func (s *Store) ensureMigrationsTable() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at DATETIME
		)
	`)
	return err
}

func (s *Store) getAppliedMigrations() (map[int]bool, error) {
	rows, err := s.db.Query("SELECT version FROM schema_migrations")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = true
	}
	return applied, rows.Err()
}

func (s *Store) MigrationVersion() (int, error) {
	var version sql.NullInt64
	err := s.db.QueryRow("SELECT MAX(version) FROM schema_migrations").Scan(&version)
	if err != nil {
		return 0, err
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
