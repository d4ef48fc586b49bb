package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Apps      []App                    `yaml:"apps"`
	Analysis  Analysis                 `yaml:"analysis"`
	Risk      Risk                     `yaml:"risk"`
	Taxonomy  map[string]TaxonomyEntry `yaml:"taxonomy"`
	Narrative Narrative                `yaml:"narrative"`
	Output    Output                   `yaml:"output"`
	Server    Server                   `yaml:"server"`
	Logging   Logging                  `yaml:"logging"`
}

type App struct {
	Name        string   `yaml:"name"`
	AppID       string   `yaml:"app_id"`
	Country     string   `yaml:"country"`
	Niche       string   `yaml:"niche"`
	AvgPrice    float64  `yaml:"avg_price"`
	Competitors []string `yaml:"competitors"`
}

type Analysis struct {
	DaysBack         int                `yaml:"days_back"`
	MinWeekSample    int                `yaml:"min_week_sample"`
	MinReviewWords   int                `yaml:"min_review_words"`
	DefaultPrice     float64            `yaml:"default_price"`
	NicheMultipliers map[string]float64 `yaml:"niche_multipliers"`
}

type Risk struct {
	FunctionalBase         float64 `yaml:"functional_base"`
	EconomicBase           float64 `yaml:"economic_base"`
	ExperienceBase         float64 `yaml:"experience_base"`
	EconomicFloorDensity   float64 `yaml:"economic_floor_density"`
	EconomicFloor          float64 `yaml:"economic_floor"`
	FunctionalFloorDensity float64 `yaml:"functional_floor_density"`
	FunctionalFloor        float64 `yaml:"functional_floor"`
}

type TaxonomyEntry struct {
	Keywords []string `yaml:"keywords"`
	Weight   float64  `yaml:"weight"`
}

type Narrative struct {
	Enabled     bool   `yaml:"enabled"`
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	OllamaURL   string `yaml:"ollama_url"`
	OpenAIModel string `yaml:"openai_model"`
	APIKeyEnv   string `yaml:"api_key_env"`
	MaxTokens   int    `yaml:"max_tokens"`
}

type Output struct {
	DataDir string `yaml:"data_dir"`
}

type Server struct {
	Port int `yaml:"port"`
}

type Logging struct {
	Level string `yaml:"level"`
}

// ConfigDir returns the XDG config directory for reviewpulse.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "reviewpulse")
}

// DataDir returns the XDG data directory for reviewpulse.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "reviewpulse")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/reviewpulse/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'reviewpulse init' to create a default config",
		xdgConfig,
	)
}

// Load reads, parses and validates a config YAML file. Scoring is
// meaningless without a sound config, so any problem here is fatal.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Analysis: Analysis{
			DaysBack:       90,
			MinWeekSample:  5,
			MinReviewWords: 3,
			DefaultPrice:   9.99,
		},
		Risk: Risk{
			FunctionalBase:         200,
			EconomicBase:           250,
			ExperienceBase:         150,
			EconomicFloorDensity:   0.10,
			EconomicFloor:          60,
			FunctionalFloorDensity: 0.15,
			FunctionalFloor:        50,
		},
		Narrative: Narrative{
			Provider:    "ollama",
			Model:       "qwen2.5:7b",
			OllamaURL:   "http://localhost:11434",
			OpenAIModel: "gpt-4o-mini",
			APIKeyEnv:   "OPENAI_API_KEY",
			MaxTokens:   1024,
		},
		Server:  Server{Port: 8000},
		Logging: Logging{Level: "INFO"},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Validate rejects configs the engine cannot score with.
func (c *Config) Validate() error {
	if len(c.Apps) == 0 {
		return fmt.Errorf("no apps configured")
	}
	seen := make(map[string]bool)
	for i, app := range c.Apps {
		if app.Name == "" {
			return fmt.Errorf("apps[%d]: name is required", i)
		}
		if seen[app.Name] {
			return fmt.Errorf("apps[%d]: duplicate app name %q", i, app.Name)
		}
		seen[app.Name] = true
	}
	if len(c.Taxonomy) == 0 {
		return fmt.Errorf("taxonomy is empty")
	}
	for name, entry := range c.Taxonomy {
		if entry.Weight <= 0 {
			return fmt.Errorf("taxonomy.%s: weight must be > 0", name)
		}
		if len(entry.Keywords) == 0 {
			return fmt.Errorf("taxonomy.%s: no keywords", name)
		}
	}
	if c.Analysis.DaysBack <= 0 {
		return fmt.Errorf("analysis.days_back must be > 0")
	}
	if c.Analysis.MinWeekSample <= 0 {
		return fmt.Errorf("analysis.min_week_sample must be > 0")
	}
	return nil
}

// GetDataDir returns the effective data directory from config or XDG default.
func (c *Config) GetDataDir() string {
	if c.Output.DataDir != "" {
		return c.Output.DataDir
	}
	return DataDir()
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
