// Package pipeline orchestrates a batch run: fetch reviews, normalize,
// analyze, narrate, render, persist. One app failing never aborts the
// rest of the batch.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"time"

	"reviewpulse/internal/config"
	"reviewpulse/internal/database"
	"reviewpulse/internal/engine"
	"reviewpulse/internal/llm"
	"reviewpulse/internal/narrative"
	"reviewpulse/internal/report"
	"reviewpulse/internal/review"
	"reviewpulse/internal/source"
	"reviewpulse/internal/taxonomy"
)

// AppResult records a single app's outcome in the batch.
type AppResult struct {
	App        string
	ReportPath string
	RiskScore  float64
	Err        error
}

// Result holds the outcome of a full batch run.
type Result struct {
	RunID       int64
	Succeeded   []AppResult
	Failed      []AppResult
	Leaderboard string
	MatrixPath  string
}

// Fetcher abstracts the review source so runs can work offline from
// saved dumps and tests can inject canned batches.
type Fetcher interface {
	FetchReviews(appID string) ([]review.Raw, error)
}

// Options tune a single run.
type Options struct {
	DaysBack int
	Offline  bool // analyze saved dumps only, no network
	Smoke    bool // first app only, fail fast, no reports or history written
	Now      func() time.Time
}

// Pipeline wires the engine, sources and sinks for batch runs.
type Pipeline struct {
	cfg      *config.Config
	db       *database.DB
	eng      *engine.Engine
	fetcher  Fetcher
	narrator *narrative.Generator
	dataDir  string
}

// New builds the pipeline from validated config. The taxonomy is built
// once and shared by every app's analysis.
func New(cfg *config.Config, db *database.DB, fetcher Fetcher) (*Pipeline, error) {
	tax, err := buildTaxonomy(cfg)
	if err != nil {
		return nil, err
	}

	var provider llm.Provider
	if cfg.Narrative.Enabled {
		provider = llm.CreateProvider(
			cfg.Narrative.Provider,
			cfg.Narrative.Model,
			cfg.Narrative.OllamaURL,
			cfg.Narrative.OpenAIModel,
			cfg.Narrative.APIKeyEnv,
		)
	}

	eng := engine.New(tax, riskPolicy(cfg), cfg.Analysis.NicheMultipliers)
	eng.MinWeekSample = cfg.Analysis.MinWeekSample

	return &Pipeline{
		cfg:      cfg,
		db:       db,
		eng:      eng,
		fetcher:  fetcher,
		narrator: narrative.NewGenerator(provider, cfg.Narrative.MaxTokens),
		dataDir:  cfg.GetDataDir(),
	}, nil
}

func buildTaxonomy(cfg *config.Config) (*taxonomy.Taxonomy, error) {
	configured := make(map[string]taxonomy.CategoryConfig, len(cfg.Taxonomy))
	for name, entry := range cfg.Taxonomy {
		configured[name] = taxonomy.CategoryConfig{
			Keywords: entry.Keywords,
			Weight:   entry.Weight,
		}
	}
	tax, err := taxonomy.New(configured)
	if err != nil {
		return nil, fmt.Errorf("building taxonomy: %w", err)
	}
	return tax, nil
}

func riskPolicy(cfg *config.Config) engine.RiskPolicy {
	return engine.RiskPolicy{
		FunctionalBase:         cfg.Risk.FunctionalBase,
		EconomicBase:           cfg.Risk.EconomicBase,
		ExperienceBase:         cfg.Risk.ExperienceBase,
		EconomicFloorDensity:   cfg.Risk.EconomicFloorDensity,
		EconomicFloor:          cfg.Risk.EconomicFloor,
		FunctionalFloorDensity: cfg.Risk.FunctionalFloorDensity,
		FunctionalFloor:        cfg.Risk.FunctionalFloor,
	}
}

// Run analyzes every configured app. Failures are isolated per app and
// summarized at the end.
func (p *Pipeline) Run(ctx context.Context, opts Options) (*Result, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	daysBack := opts.DaysBack
	if daysBack <= 0 {
		daysBack = p.cfg.Analysis.DaysBack
	}

	r := &Result{}
	var runID int64
	if !opts.Smoke {
		var err error
		runID, err = p.db.StartRun(now())
		if err != nil {
			return nil, fmt.Errorf("recording run start: %w", err)
		}
		r.RunID = runID
	}

	runDate := now().UTC().Format("2006-01-02")
	var results []*engine.Result
	rowsByNiche := make(map[string][]engine.MatrixRow)

	apps := p.cfg.Apps
	if opts.Smoke && len(apps) > 1 {
		// Smoke runs exercise the whole path on the first app only.
		apps = apps[:1]
	}

	for _, app := range apps {
		res, path, err := p.runApp(ctx, app, daysBack, runDate, runID, opts)
		if err != nil {
			if opts.Smoke {
				return nil, fmt.Errorf("smoke run failed on %s: %w", app.Name, err)
			}
			log.Printf("App %s failed: %v", app.Name, err)
			r.Failed = append(r.Failed, AppResult{App: app.Name, Err: err})
			continue
		}
		r.Succeeded = append(r.Succeeded, AppResult{
			App:        app.Name,
			ReportPath: path,
			RiskScore:  res.RiskScore,
		})
		results = append(results, res)
		niche := res.Niche
		if niche == "" {
			niche = "consumer"
		}
		rowsByNiche[niche] = append(rowsByNiche[niche], p.eng.MatrixRow(res))
	}

	if len(results) >= 2 {
		p.renderComparatives(results, rowsByNiche, runDate, opts, r)
	}

	if !opts.Smoke {
		if err := p.db.FinishRun(runID, now(), len(apps), len(r.Failed)); err != nil {
			log.Printf("Failed to record run end: %v", err)
		}
	}

	logSummary(r)
	return r, nil
}

// runApp is the per-app unit of isolation. A panic anywhere in one
// app's analysis is converted to an error so the remaining apps still
// run.
func (p *Pipeline) runApp(ctx context.Context, app config.App, daysBack int, runDate string, runID int64, opts Options) (res *engine.Result, path string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			res, path = nil, ""
			err = fmt.Errorf("analyzing %s panicked: %v", app.Name, rec)
		}
	}()
	raws, err := p.loadReviews(app, opts)
	if err != nil {
		return nil, "", err
	}

	normalizer := &review.Normalizer{
		DaysBack: daysBack,
		MinWords: p.cfg.Analysis.MinReviewWords,
	}
	if opts.Now != nil {
		normalizer.Now = opts.Now
	}
	reviews, stats := normalizer.Normalize(raws)

	res, err = p.eng.Analyze(engine.App{
		Name:        app.Name,
		Niche:       app.Niche,
		AvgPrice:    effectivePrice(app.AvgPrice, p.cfg.Analysis.DefaultPrice),
		Competitors: app.Competitors,
	}, reviews, stats)
	if err != nil {
		return nil, "", err
	}

	n := p.narrator.Generate(ctx, res)
	md := report.RenderApp(res, n, runDate)

	if opts.Smoke {
		return res, "", nil
	}

	path, err = report.Write(p.dataDir, report.FileName(app.Name, runDate), md)
	if err != nil {
		return nil, "", err
	}

	_, err = p.db.InsertAnalysis(&database.Analysis{
		RunID:          runID,
		App:            res.App,
		Niche:          res.Niche,
		TotalReviews:   res.TotalReviews,
		PainReviews:    res.PainReviews,
		WhaleCount:     res.WhaleCount,
		RiskScore:      res.RiskScore,
		PrimaryPillar:  string(res.PrimaryPillar),
		Slope:          res.Volatility.Slope,
		SlopeDelta:     res.Volatility.SlopeDelta,
		Momentum:       res.Volatility.Momentum,
		MonthlyLeakage: res.Revenue.MonthlyUSD,
		SafeHarbor:     p.eng.MatrixRow(res).SafeHarbor,
		ReportPath:     &path,
	})
	if err != nil {
		return nil, "", fmt.Errorf("persisting analysis: %w", err)
	}

	return res, path, nil
}

// loadReviews prefers the network fetch and falls back to the saved
// dump; offline mode skips the network entirely.
func (p *Pipeline) loadReviews(app config.App, opts Options) ([]review.Raw, error) {
	if opts.Offline {
		dump, err := source.LoadDump(p.dataDir, app.Name)
		if err != nil {
			return nil, fmt.Errorf("offline run needs a saved dump: %w", err)
		}
		return dump.Reviews, nil
	}

	if app.AppID == "" {
		return nil, fmt.Errorf("app %s has no app_id configured", app.Name)
	}
	raws, err := p.fetcher.FetchReviews(app.AppID)
	if err != nil {
		if source.HasDump(p.dataDir, app.Name) {
			log.Printf("Fetch failed for %s, falling back to saved dump: %v", app.Name, err)
			dump, loadErr := source.LoadDump(p.dataDir, app.Name)
			if loadErr != nil {
				return nil, loadErr
			}
			return dump.Reviews, nil
		}
		return nil, err
	}

	if !opts.Smoke {
		dump := &source.Dump{
			App:       app.Name,
			AppID:     app.AppID,
			Country:   app.Country,
			FetchedAt: time.Now().UTC().Format(time.RFC3339),
			Reviews:   raws,
		}
		if err := source.SaveDump(p.dataDir, dump); err != nil {
			log.Printf("Failed to save dump for %s: %v", app.Name, err)
		}
	}
	return raws, nil
}

func (p *Pipeline) renderComparatives(results []*engine.Result, rowsByNiche map[string][]engine.MatrixRow, runDate string, opts Options, r *Result) {
	sorted := make([]*engine.Result, len(results))
	copy(sorted, results)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].RiskScore != sorted[j].RiskScore {
			return sorted[i].RiskScore > sorted[j].RiskScore
		}
		return sorted[i].App < sorted[j].App
	})
	r.Leaderboard = report.RenderLeaderboard(sorted, runDate)

	var niches []string
	for niche := range rowsByNiche {
		niches = append(niches, niche)
	}
	sort.Strings(niches)

	md := "# Niche Battlefield\n\n*Run date: " + runDate + "*\n\n"
	for _, niche := range niches {
		m := engine.BuildNicheMatrix(niche, rowsByNiche[niche])
		md += report.RenderNicheMatrix(m) + "\n"
	}

	if opts.Smoke {
		return
	}
	path, err := report.Write(p.dataDir, "battlefield-"+runDate+".md", md)
	if err != nil {
		log.Printf("Failed to write battlefield report: %v", err)
		return
	}
	r.MatrixPath = path
	if _, err := report.Write(p.dataDir, "leaderboard-"+runDate+".md", r.Leaderboard); err != nil {
		log.Printf("Failed to write leaderboard: %v", err)
	}
}

func effectivePrice(appPrice, defaultPrice float64) float64 {
	if appPrice > 0 {
		return appPrice
	}
	return defaultPrice
}

func logSummary(r *Result) {
	log.Printf("Run complete: %d succeeded, %d failed", len(r.Succeeded), len(r.Failed))
	for _, ok := range r.Succeeded {
		log.Printf("  ok   %s (risk %.1f) %s", ok.App, ok.RiskScore, ok.ReportPath)
	}
	for _, failed := range r.Failed {
		log.Printf("  FAIL %s: %v", failed.App, failed.Err)
	}
}
