package source

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"reviewpulse/internal/review"
)

// Dump is a saved raw-review batch for one app. Re-running the analysis
// against a dump reproduces the exact same report.
type Dump struct {
	App       string       `json:"app"`
	AppID     string       `json:"app_id"`
	Country   string       `json:"country"`
	FetchedAt string       `json:"fetched_at"`
	Reviews   []review.Raw `json:"reviews"`
}

// dumpPath places dumps under <dataDir>/reviews/<app>.json.
func dumpPath(dataDir, appName string) string {
	name := strings.ToLower(strings.ReplaceAll(appName, " ", "-"))
	return filepath.Join(dataDir, "reviews", name+".json")
}

// SaveDump writes a dump atomically (write to temp, then rename).
func SaveDump(dataDir string, d *Dump) error {
	path := dumpPath(dataDir, d.App)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating dump dir: %w", err)
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding dump for %s: %w", d.App, err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing dump: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replacing dump: %w", err)
	}
	return nil
}

// LoadDump reads a previously saved dump for an app.
func LoadDump(dataDir, appName string) (*Dump, error) {
	path := dumpPath(dataDir, appName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading dump for %s: %w", appName, err)
	}
	var d Dump
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding dump %s: %w", path, err)
	}
	return &d, nil
}

// HasDump reports whether a saved dump exists for an app.
func HasDump(dataDir, appName string) bool {
	_, err := os.Stat(dumpPath(dataDir, appName))
	return err == nil
}
