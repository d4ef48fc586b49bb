package database

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRunLifecycle(t *testing.T) {
	db := openTestDB(t)
	started := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	runID, err := db.StartRun(started)
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}
	if runID == 0 {
		t.Fatal("run ID should be non-zero")
	}
	if err := db.FinishRun(runID, started.Add(time.Minute), 3, 1); err != nil {
		t.Fatalf("FinishRun: %v", err)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Runs != 1 {
		t.Errorf("runs = %d, want 1", stats.Runs)
	}
	if stats.LastRun == nil {
		t.Error("last run should be set")
	}
}

func TestInsertAndQueryAnalyses(t *testing.T) {
	db := openTestDB(t)
	runID, err := db.StartRun(time.Now())
	if err != nil {
		t.Fatalf("StartRun: %v", err)
	}

	for i, a := range []Analysis{
		{RunID: runID, App: "FocusTimer", Niche: "consumer", RiskScore: 72.5, Momentum: "Accelerating"},
		{RunID: runID, App: "FocusTimer", Niche: "consumer", RiskScore: 45.0, Momentum: "Improving", SafeHarbor: true},
		{RunID: runID, App: "DeepWork", Niche: "b2b", RiskScore: 88.0, Momentum: "Accelerating"},
	} {
		if _, err := db.InsertAnalysis(&a); err != nil {
			t.Fatalf("InsertAnalysis %d: %v", i, err)
		}
	}

	latest, err := db.GetLatestAnalyses()
	if err != nil {
		t.Fatalf("GetLatestAnalyses: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("latest = %d rows, want 2 (one per app)", len(latest))
	}
	if latest[0].App != "DeepWork" {
		t.Errorf("first by risk = %q, want DeepWork", latest[0].App)
	}
	// FocusTimer's latest insert wins, not its highest score.
	var focus *Analysis
	for i := range latest {
		if latest[i].App == "FocusTimer" {
			focus = &latest[i]
		}
	}
	if focus == nil || focus.RiskScore != 45.0 || !focus.SafeHarbor {
		t.Errorf("FocusTimer latest = %+v", focus)
	}

	history, err := db.GetAnalysesForApp("FocusTimer", 10)
	if err != nil {
		t.Fatalf("GetAnalysesForApp: %v", err)
	}
	if len(history) != 2 || history[0].RiskScore != 45.0 {
		t.Errorf("history = %+v", history)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db1, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	db1.Close()
	db2, err := Open(path)
	if err != nil {
		t.Fatalf("second open (migrated db): %v", err)
	}
	db2.Close()
}
