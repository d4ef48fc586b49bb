package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"reviewpulse/internal/config"
	"reviewpulse/internal/database"
	"reviewpulse/internal/review"
	"reviewpulse/internal/source"
)

type mockFetcher struct {
	batches map[string][]review.Raw
	errs    map[string]error
}

func (m *mockFetcher) FetchReviews(appID string) ([]review.Raw, error) {
	if err, ok := m.errs[appID]; ok {
		return nil, err
	}
	return m.batches[appID], nil
}

func fixedNow() time.Time {
	return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
}

func testConfig(t *testing.T, dataDir string) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Apps: []config.App{
			{Name: "FocusTimer", AppID: "111", Niche: "consumer", AvgPrice: 4.99, Competitors: []string{"Forest"}},
			{Name: "DeepWork", AppID: "222", Niche: "b2b"},
		},
		Analysis: config.Analysis{DaysBack: 90, MinWeekSample: 5, DefaultPrice: 9.99},
		Taxonomy: map[string]config.TaxonomyEntry{
			"critical":       {Weight: 3.0, Keywords: []string{"crash"}},
			"scam_financial": {Weight: 3.0, Keywords: []string{"scam"}},
		},
		Output: config.Output{DataDir: dataDir},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("test config invalid: %v", err)
	}
	return cfg
}

func rawBatch(n int, body string) []review.Raw {
	var raws []review.Raw
	for i := 0; i < n; i++ {
		raws = append(raws, review.Raw{
			"id":     fmt.Sprintf("r%d", i),
			"text":   body,
			"rating": float64(1),
			"date":   fmt.Sprintf("2025-06-%02d", 1+i%14),
		})
	}
	return raws
}

func newTestPipeline(t *testing.T, fetcher Fetcher) (*Pipeline, string) {
	t.Helper()
	dataDir := t.TempDir()
	db, err := database.Open(filepath.Join(dataDir, "test.db"))
	if err != nil {
		t.Fatalf("opening db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	p, err := New(testConfig(t, dataDir), db, fetcher)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p, dataDir
}

func TestRunProducesReportsAndHistory(t *testing.T) {
	fetcher := &mockFetcher{batches: map[string][]review.Raw{
		"111": rawBatch(20, "crash on open"),
		"222": rawBatch(10, "total scam, charged me"),
	}}
	p, dataDir := newTestPipeline(t, fetcher)

	res, err := p.Run(context.Background(), Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Succeeded) != 2 || len(res.Failed) != 0 {
		t.Fatalf("succeeded %d, failed %d", len(res.Succeeded), len(res.Failed))
	}

	for _, ok := range res.Succeeded {
		data, err := os.ReadFile(ok.ReportPath)
		if err != nil {
			t.Fatalf("report for %s: %v", ok.App, err)
		}
		if !strings.Contains(string(data), "Review Volatility Report") {
			t.Errorf("report for %s lacks header", ok.App)
		}
	}

	// Comparative artifacts exist for 2+ apps.
	if res.Leaderboard == "" || res.MatrixPath == "" {
		t.Error("leaderboard and battlefield expected with two apps")
	}

	latest, err := p.db.GetLatestAnalyses()
	if err != nil {
		t.Fatalf("GetLatestAnalyses: %v", err)
	}
	if len(latest) != 2 {
		t.Errorf("history rows = %d, want 2", len(latest))
	}

	// Raw dumps saved for offline re-runs.
	if !source.HasDump(dataDir, "FocusTimer") {
		t.Error("dump for FocusTimer missing")
	}
}

func TestRunIsolatesAppFailures(t *testing.T) {
	fetcher := &mockFetcher{
		batches: map[string][]review.Raw{"111": rawBatch(5, "crash")},
		errs:    map[string]error{"222": fmt.Errorf("feed unreachable")},
	}
	p, _ := newTestPipeline(t, fetcher)

	res, err := p.Run(context.Background(), Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Succeeded) != 1 || res.Succeeded[0].App != "FocusTimer" {
		t.Errorf("succeeded = %+v", res.Succeeded)
	}
	if len(res.Failed) != 1 || res.Failed[0].App != "DeepWork" {
		t.Errorf("failed = %+v", res.Failed)
	}
}

type panickyFetcher struct {
	inner   *mockFetcher
	panicOn string
}

func (f *panickyFetcher) FetchReviews(appID string) ([]review.Raw, error) {
	if appID == f.panicOn {
		panic("corrupt feed entry")
	}
	return f.inner.FetchReviews(appID)
}

func TestRunIsolatesAppPanics(t *testing.T) {
	fetcher := &panickyFetcher{
		inner:   &mockFetcher{batches: map[string][]review.Raw{"222": rawBatch(5, "scam")}},
		panicOn: "111",
	}
	p, _ := newTestPipeline(t, fetcher)

	res, err := p.Run(context.Background(), Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Succeeded) != 1 || res.Succeeded[0].App != "DeepWork" {
		t.Errorf("succeeded = %+v", res.Succeeded)
	}
	if len(res.Failed) != 1 || res.Failed[0].App != "FocusTimer" {
		t.Fatalf("failed = %+v", res.Failed)
	}
	if res.Failed[0].Err == nil || !strings.Contains(res.Failed[0].Err.Error(), "panicked") {
		t.Errorf("panic not surfaced as error: %v", res.Failed[0].Err)
	}
}

func TestRunOfflineUsesDumps(t *testing.T) {
	p, dataDir := newTestPipeline(t, &mockFetcher{
		errs: map[string]error{"111": fmt.Errorf("no network"), "222": fmt.Errorf("no network")},
	})
	for _, app := range []string{"FocusTimer", "DeepWork"} {
		if err := source.SaveDump(dataDir, &source.Dump{App: app, Reviews: rawBatch(5, "crash")}); err != nil {
			t.Fatalf("SaveDump: %v", err)
		}
	}

	res, err := p.Run(context.Background(), Options{Offline: true, Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Errorf("offline run failed apps: %+v", res.Failed)
	}
}

func TestRunSmokeFirstAppOnlyWritesNothing(t *testing.T) {
	fetcher := &mockFetcher{batches: map[string][]review.Raw{
		"111": rawBatch(5, "crash"),
		"222": rawBatch(5, "scam"),
	}}
	p, dataDir := newTestPipeline(t, fetcher)

	res, err := p.Run(context.Background(), Options{Smoke: true, Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Succeeded) != 1 || res.Succeeded[0].App != "FocusTimer" {
		t.Fatalf("smoke run should analyze the first app only: %+v", res.Succeeded)
	}
	if entries, _ := os.ReadDir(filepath.Join(dataDir, "reports")); len(entries) != 0 {
		t.Errorf("smoke run wrote reports: %v", entries)
	}
	if source.HasDump(dataDir, "FocusTimer") {
		t.Error("smoke run saved a dump")
	}
	stats, err := p.db.GetStats()
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	if stats.Runs != 0 || stats.Analyses != 0 {
		t.Errorf("smoke run touched history: %+v", stats)
	}
}

func TestRunSmokeFailsFast(t *testing.T) {
	p, _ := newTestPipeline(t, &mockFetcher{
		errs: map[string]error{"111": fmt.Errorf("feed unreachable")},
	})

	if _, err := p.Run(context.Background(), Options{Smoke: true, Now: fixedNow}); err == nil {
		t.Fatal("smoke run should fail fast on a fetch error")
	}
}

func TestRunFetchFallsBackToDump(t *testing.T) {
	p, dataDir := newTestPipeline(t, &mockFetcher{
		batches: map[string][]review.Raw{"222": rawBatch(5, "scam")},
		errs:    map[string]error{"111": fmt.Errorf("rate limited")},
	})
	if err := source.SaveDump(dataDir, &source.Dump{App: "FocusTimer", Reviews: rawBatch(8, "crash")}); err != nil {
		t.Fatalf("SaveDump: %v", err)
	}

	res, err := p.Run(context.Background(), Options{Now: fixedNow})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(res.Failed) != 0 {
		t.Errorf("fallback should have rescued FocusTimer: %+v", res.Failed)
	}
}
