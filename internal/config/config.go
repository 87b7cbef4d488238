package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

type Config struct {
	Archive     Archive     `yaml:"archive"`
	Scheduler   Scheduler   `yaml:"scheduler"`
	Recommender Recommender `yaml:"recommender"`
	Ingestor    Ingestor    `yaml:"ingestor"`
	Server      Server      `yaml:"server"`
	Sources     []Source    `yaml:"sources"`
}

type Archive struct {
	Path           string `yaml:"path"`
	MaxWindowYears int    `yaml:"max_window_years"`
}

type Scheduler struct {
	IngestTime   string   `yaml:"ingest_time"` // "HH:MM" local wall clock
	EnabledGames []string `yaml:"enabled_games"`
}

type Recommender struct {
	Features        []string `yaml:"features"` // empty means all
	Seed            *int64   `yaml:"seed"`     // nil derives from date + game
	Unique          bool     `yaml:"unique"`
	MinHistoryDraws int      `yaml:"min_history_draws"`
}

type Ingestor struct {
	TimeoutSeconds     int `yaml:"timeout_seconds"`
	MaxRetries         int `yaml:"max_retries"`
	BackoffBaseSeconds int `yaml:"backoff_base_seconds"`
	BackoffCapSeconds  int `yaml:"backoff_cap_seconds"`
}

type Server struct {
	Port int `yaml:"port"`
}

// Source maps a game to its official results URL.
type Source struct {
	Game string `yaml:"game"`
	URL  string `yaml:"url"`
}

// ConfigDir returns the XDG config directory for lotoscope.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "lotoscope")
}

// DataDir returns the XDG data directory for lotoscope.
func DataDir() string {
	return filepath.Join(homeDir(), ".local", "share", "lotoscope")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/lotoscope/config.yaml > ./config.yaml
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
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'lotoscope init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a Config with every option at its documented default.
func Default() *Config {
	return &Config{
		Archive: Archive{
			MaxWindowYears: 10,
		},
		Scheduler: Scheduler{
			IngestTime:   "00:01",
			EnabledGames: []string{"LOTO", "EUROMILLIONS", "EURODREAMS", "KENO"},
		},
		Recommender: Recommender{
			MinHistoryDraws: 30,
		},
		Ingestor: Ingestor{
			TimeoutSeconds:     10,
			MaxRetries:         6,
			BackoffBaseSeconds: 30,
			BackoffCapSeconds:  600,
		},
		Server: Server{Port: 8000},
	}
}

func (c *Config) validate() error {
	if _, err := time.Parse("15:04", c.Scheduler.IngestTime); err != nil {
		return fmt.Errorf("scheduler.ingest_time %q: want HH:MM", c.Scheduler.IngestTime)
	}
	if c.Archive.MaxWindowYears <= 0 {
		return fmt.Errorf("archive.max_window_years must be positive, got %d", c.Archive.MaxWindowYears)
	}
	if c.Recommender.MinHistoryDraws < 0 {
		return fmt.Errorf("recommender.min_history_draws must not be negative, got %d", c.Recommender.MinHistoryDraws)
	}
	if c.Ingestor.MaxRetries <= 0 || c.Ingestor.TimeoutSeconds <= 0 {
		return fmt.Errorf("ingestor retries and timeout must be positive")
	}
	return nil
}

// ArchivePath returns the effective database path from config or XDG default.
func (c *Config) ArchivePath() string {
	if c.Archive.Path != "" {
		return c.Archive.Path
	}
	return filepath.Join(DataDir(), "lotoscope.db")
}

// SourceURL returns the configured results URL for a game, "" if none.
func (c *Config) SourceURL(game string) string {
	for _, s := range c.Sources {
		if s.Game == game {
			return s.URL
		}
	}
	return ""
}

// IngestTimeout returns the fetch timeout as a duration.
func (c *Config) IngestTimeout() time.Duration {
	return time.Duration(c.Ingestor.TimeoutSeconds) * time.Second
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
