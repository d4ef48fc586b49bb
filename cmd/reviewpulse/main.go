package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"reviewpulse/internal/config"
	"reviewpulse/internal/database"
	"reviewpulse/internal/pipeline"
	"reviewpulse/internal/review"
	"reviewpulse/internal/server"
	"reviewpulse/internal/source"
	"reviewpulse/internal/watch"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "reviewpulse",
	Short:   "App-store review volatility analysis",
	Long:    "ReviewPulse fetches App Store reviews, maps complaints onto pain pillars, and scores how attackable each app is.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(watchCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("reviewpulse", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/reviewpulse/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure your target apps, niches, and taxonomy.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and system status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Configured apps: %d\n", len(cfg.Apps))
		for _, app := range cfg.Apps {
			dump := "no dump"
			if source.HasDump(cfg.GetDataDir(), app.Name) {
				dump = "dump saved"
			}
			fmt.Printf("  %s (%s): %s\n", app.Name, app.Niche, dump)
		}
		fmt.Println("\nHistory:")
		fmt.Printf("  Runs: %d\n", stats.Runs)
		fmt.Printf("  Analyses: %d\n", stats.Analyses)
		fmt.Printf("  Apps analyzed: %d\n", stats.Apps)
		if stats.LastRun != nil {
			fmt.Printf("  Last run: %s\n", *stats.LastRun)
		} else {
			fmt.Println("  Last run: never")
		}
		return nil
	},
}

// --- fetch command ---

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch reviews for configured apps and save dumps",
	RunE: func(cmd *cobra.Command, args []string) error {
		fetcher := newStoreFetcher(cfg)
		dataDir := cfg.GetDataDir()

		failed := 0
		for _, app := range cfg.Apps {
			if app.AppID == "" {
				log.Printf("Skipping %s: no app_id configured", app.Name)
				failed++
				continue
			}
			raws, err := fetcher.FetchReviews(app.AppID)
			if err != nil {
				log.Printf("Fetch failed for %s: %v", app.Name, err)
				failed++
				continue
			}
			dump := &source.Dump{
				App:       app.Name,
				AppID:     app.AppID,
				Country:   app.Country,
				FetchedAt: time.Now().UTC().Format(time.RFC3339),
				Reviews:   raws,
			}
			if err := source.SaveDump(dataDir, dump); err != nil {
				log.Printf("Saving dump for %s: %v", app.Name, err)
				failed++
				continue
			}
			fmt.Printf("Fetched %d reviews for %s\n", len(raws), app.Name)
		}

		if failed == len(cfg.Apps) {
			return fmt.Errorf("all %d fetches failed", failed)
		}
		return nil
	},
}

// --- run command ---

var (
	runDaysBack int
	runSmoke    bool
	runOffline  bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full analysis: fetch -> analyze -> report",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		result, err := executeRun(db, pipeline.Options{
			DaysBack: runDaysBack,
			Offline:  runOffline,
			Smoke:    runSmoke,
		})
		if err != nil {
			return err
		}

		printRunResult(result)
		if !runSmoke && len(result.Succeeded) > 0 {
			fmt.Println("\nRun 'reviewpulse serve' to browse the reports.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().IntVar(&runDaysBack, "days-back", 0, "Override lookback window (days)")
	runCmd.Flags().BoolVar(&runSmoke, "smoke", false, "Analyze without writing reports or history")
	runCmd.Flags().BoolVar(&runOffline, "offline", false, "Analyze saved dumps only, no network")
}

func executeRun(db *database.DB, opts pipeline.Options) (*pipeline.Result, error) {
	pipe, err := pipeline.New(cfg, db, newStoreFetcher(cfg))
	if err != nil {
		return nil, err
	}
	return pipe.Run(context.Background(), opts)
}

func printRunResult(result *pipeline.Result) {
	fmt.Printf("\nAnalyzed %d app(s), %d failure(s)\n", len(result.Succeeded), len(result.Failed))
	for _, app := range result.Succeeded {
		fmt.Printf("  %s: risk %.1f", app.App, app.RiskScore)
		if app.ReportPath != "" {
			fmt.Printf(" -> %s", app.ReportPath)
		}
		fmt.Println()
	}
	for _, app := range result.Failed {
		fmt.Printf("  %s: FAILED (%v)\n", app.App, app.Err)
	}
	if result.Leaderboard != "" {
		fmt.Printf("\n%s\n", result.Leaderboard)
	}
	if result.MatrixPath != "" {
		fmt.Printf("Battlefield report: %s\n", result.MatrixPath)
	}
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- watch command ---

var watchDebounce int

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-analyze saved dumps whenever they change",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		cfgPath, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		// Change events carry absolute paths, so the config path must be
		// compared in absolute form too.
		if cfgPath, err = filepath.Abs(cfgPath); err != nil {
			return err
		}
		dumpsDir := filepath.Join(cfg.GetDataDir(), "reviews")

		w, err := watch.New(dumpsDir, []string{cfgPath}, watchDebounce)
		if err != nil {
			return err
		}
		if err := w.Start(); err != nil {
			return err
		}
		defer w.Stop()

		fmt.Printf("Watching %s and %s\n", dumpsDir, cfgPath)
		fmt.Println("Press Ctrl+C to stop")

		for {
			select {
			case change, ok := <-w.Changes():
				if !ok {
					return nil
				}
				log.Printf("Change detected: %s", change.Path)
				if change.Path == cfgPath {
					reloaded, err := config.Load(cfgPath)
					if err != nil {
						log.Printf("Config reload failed, keeping previous config: %v", err)
						continue
					}
					cfg = reloaded
				}
				result, err := executeRun(db, pipeline.Options{Offline: true})
				if err != nil {
					log.Printf("Run failed: %v", err)
					continue
				}
				printRunResult(result)
			case err, ok := <-w.Errors():
				if !ok {
					return nil
				}
				log.Printf("Watch error: %v", err)
			}
		}
	},
}

func init() {
	watchCmd.Flags().IntVar(&watchDebounce, "debounce", 2, "Seconds a file must stay quiet before re-running")
}

// storeFetcher routes fetches to a per-country App Store client so apps
// in different storefronts can share one run.
type storeFetcher struct {
	clients map[string]*source.AppStoreClient
	country map[string]string // appID -> country
}

func newStoreFetcher(cfg *config.Config) *storeFetcher {
	f := &storeFetcher{
		clients: make(map[string]*source.AppStoreClient),
		country: make(map[string]string),
	}
	for _, app := range cfg.Apps {
		if app.AppID != "" {
			f.country[app.AppID] = app.Country
		}
	}
	return f
}

func (f *storeFetcher) FetchReviews(appID string) ([]review.Raw, error) {
	country := f.country[appID]
	client, ok := f.clients[country]
	if !ok {
		client = source.NewAppStoreClient(country)
		f.clients[country] = client
	}
	return client.FetchReviews(appID)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	dbPath := filepath.Join(dataDir, "reviewpulse.db")
	return database.Open(dbPath)
}
