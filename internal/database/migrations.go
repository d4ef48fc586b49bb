package database

import "database/sql"

// Migration represents a single schema migration step.
type Migration struct {
	Version     int
	Description string
	Up          func(tx *sql.Tx) error
}

// migrations is the ordered list of all schema migrations.
// Append new migrations to the end with incrementing Version numbers.
var migrations = []Migration{
	{
		Version:     1,
		Description: "initial schema",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    finished_at TEXT,
    apps_total INTEGER DEFAULT 0,
    apps_failed INTEGER DEFAULT 0
);

CREATE TABLE IF NOT EXISTS analyses (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    run_id INTEGER NOT NULL REFERENCES runs(id),
    app TEXT NOT NULL,
    niche TEXT,
    total_reviews INTEGER DEFAULT 0,
    pain_reviews INTEGER DEFAULT 0,
    whale_count INTEGER DEFAULT 0,
    risk_score REAL DEFAULT 0,
    primary_pillar TEXT,
    slope REAL DEFAULT 0,
    slope_delta REAL DEFAULT 0,
    momentum TEXT,
    monthly_leakage REAL DEFAULT 0,
    safe_harbor INTEGER DEFAULT 0,
    report_path TEXT,
    created_at TEXT DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_analyses_app ON analyses(app, id);
`)
			return err
		},
	},
}

// latestVersion returns the highest migration version.
func latestVersion() int {
	if len(migrations) == 0 {
		return 0
	}
	return migrations[len(migrations)-1].Version
}
