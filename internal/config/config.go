package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SyntheticConfig describes one recurring item injected into the current
// event groups on the days its RRULE fires.
type SyntheticConfig struct {
	Name  string `yaml:"name" json:"name"`
	RRule string `yaml:"rrule" json:"rrule"`
	Image string `yaml:"image" json:"image"`
	Link  string `yaml:"link" json:"link"`
}

// RegistrationConfig points at the dashboard host this service announces
// itself to on startup. Leaving URL empty disables registration.
type RegistrationConfig struct {
	// URL is the dashboard's service-registry endpoint.
	URL string `yaml:"url" json:"url"`
	// PublicURL is the base URL under which the dashboard can reach us.
	PublicURL string `yaml:"public_url" json:"public_url"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address.
	Listen string `yaml:"listen" json:"listen"`

	// FeedURL is the upstream events feed.
	FeedURL string `yaml:"feed_url" json:"feed_url"`

	// RefreshCron is a cron-style schedule for the background cache refresh.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	// WindowDays is how far ahead an event may start and still show as
	// upcoming.
	WindowDays int `yaml:"window_days" json:"window_days"`

	// Excluded lists headings that are never shown, matched
	// case-insensitively after whitespace normalization.
	Excluded []string `yaml:"excluded" json:"excluded"`

	// Synthetic items injected into the current sets by recurrence rule.
	Synthetic []SyntheticConfig `yaml:"synthetic" json:"synthetic"`

	// Registration, if configured, announces this service to the dashboard.
	Registration *RegistrationConfig `yaml:"registration,omitempty" json:"registration,omitempty"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      "127.0.0.1:8002",
		FeedURL:     "https://raw.githubusercontent.com/bigfoott/ScrapedDuck/data/events.json",
		RefreshCron: "0 6 * * *",
		WindowDays:  30,
		Excluded:    []string{"Go Battle League"},
		Synthetic: []SyntheticConfig{
			{
				Name:  "Trade Day",
				RRule: "FREQ=WEEKLY;BYDAY=SU",
			},
		},
	}
}

// Normalize fills in missing/zero values so partially-filled configs still
// behave correctly.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.FeedURL == "" {
		c.FeedURL = def.FeedURL
	}
	if c.RefreshCron == "" {
		c.RefreshCron = def.RefreshCron
	}
	if c.WindowDays <= 0 {
		c.WindowDays = def.WindowDays
	}
	if c.Excluded == nil {
		c.Excluded = def.Excluded
	}
	if c.Synthetic == nil {
		c.Synthetic = def.Synthetic
	}
}

// applyEnv lets a few settings be overridden from the environment, mainly
// for container deployments where editing the YAML is awkward.
func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("POGOSLIDES_LISTEN")); v != "" {
		c.Listen = v
	}
	if v := strings.TrimSpace(os.Getenv("POGOSLIDES_FEED_URL")); v != "" {
		c.FeedURL = v
	}
	if v := strings.TrimSpace(os.Getenv("POGOSLIDES_REFRESH")); v != "" {
		c.RefreshCron = v
	}
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written there (0600,
//     parent directory created) and returned.
//   - If the file exists, it is unmarshalled and normalized.
//   - Environment overrides apply last in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			cfg.applyEnv()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	cfg.applyEnv()

	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename) with 0600
// permissions, creating the parent directory if needed.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".pogoslides-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
