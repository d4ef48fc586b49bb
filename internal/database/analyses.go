package database

import (
	"database/sql"
	"time"
)

// StartRun records the beginning of a batch run and returns its ID.
func (db *DB) StartRun(startedAt time.Time) (int64, error) {
	result, err := db.conn.Exec(
		"INSERT INTO runs (started_at) VALUES (?)",
		startedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// FinishRun stamps a run's end time and outcome counts.
func (db *DB) FinishRun(runID int64, finishedAt time.Time, appsTotal, appsFailed int) error {
	_, err := db.conn.Exec(
		"UPDATE runs SET finished_at = ?, apps_total = ?, apps_failed = ? WHERE id = ?",
		finishedAt.UTC().Format(time.RFC3339), appsTotal, appsFailed, runID,
	)
	return err
}

// InsertAnalysis persists one app's analysis summary.
func (db *DB) InsertAnalysis(a *Analysis) (int64, error) {
	result, err := db.conn.Exec(
		`INSERT INTO analyses (run_id, app, niche, total_reviews, pain_reviews, whale_count,
			risk_score, primary_pillar, slope, slope_delta, momentum, monthly_leakage,
			safe_harbor, report_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.App, a.Niche, a.TotalReviews, a.PainReviews, a.WhaleCount,
		a.RiskScore, a.PrimaryPillar, a.Slope, a.SlopeDelta, a.Momentum, a.MonthlyLeakage,
		boolToInt(a.SafeHarbor), a.ReportPath,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetLatestAnalyses returns the most recent analysis per app, ordered by
// risk score descending.
func (db *DB) GetLatestAnalyses() ([]Analysis, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, app, niche, total_reviews, pain_reviews, whale_count,
			risk_score, primary_pillar, slope, slope_delta, momentum, monthly_leakage,
			safe_harbor, report_path, created_at
		FROM analyses
		WHERE id IN (SELECT MAX(id) FROM analyses GROUP BY app)
		ORDER BY risk_score DESC, app`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

// GetAnalysesForApp returns an app's history, newest first.
func (db *DB) GetAnalysesForApp(app string, limit int) ([]Analysis, error) {
	rows, err := db.conn.Query(
		`SELECT id, run_id, app, niche, total_reviews, pain_reviews, whale_count,
			risk_score, primary_pillar, slope, slope_delta, momentum, monthly_leakage,
			safe_harbor, report_path, created_at
		FROM analyses WHERE app = ? ORDER BY id DESC LIMIT ?`, app, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnalyses(rows)
}

// Stats summarizes the database contents for the status command.
type Stats struct {
	Runs     int
	Analyses int
	Apps     int
	LastRun  *string
}

// GetStats returns database statistics.
func (db *DB) GetStats() (*Stats, error) {
	s := &Stats{}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM runs").Scan(&s.Runs); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM analyses").Scan(&s.Analyses); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT COUNT(DISTINCT app) FROM analyses").Scan(&s.Apps); err != nil {
		return nil, err
	}
	if err := db.conn.QueryRow("SELECT MAX(started_at) FROM runs").Scan(&s.LastRun); err != nil {
		return nil, err
	}
	return s, nil
}

func scanAnalyses(rows *sql.Rows) ([]Analysis, error) {
	var out []Analysis
	for rows.Next() {
		var a Analysis
		var safeHarbor int
		if err := rows.Scan(
			&a.ID, &a.RunID, &a.App, &a.Niche, &a.TotalReviews, &a.PainReviews,
			&a.WhaleCount, &a.RiskScore, &a.PrimaryPillar, &a.Slope, &a.SlopeDelta,
			&a.Momentum, &a.MonthlyLeakage, &safeHarbor, &a.ReportPath, &a.CreatedAt,
		); err != nil {
			return nil, err
		}
		a.SafeHarbor = safeHarbor != 0
		out = append(out, a)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
