// Package config loads the bins configuration from YAML with environment
// overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all bins configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Session SessionConfig `yaml:"session"`
	UI      UIConfig      `yaml:"ui"`
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig points at the dumpster service backend.
type APIConfig struct {
	BaseURL string `yaml:"base_url"`
	Timeout string `yaml:"timeout"`
}

// StorageConfig configures the local SQLite database.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// SessionConfig controls how long a stored login is trusted locally.
type SessionConfig struct {
	TTL string `yaml:"ttl"` // "0" disables local expiry
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL: "http://localhost:8899",
			Timeout: "10s",
		},
		Storage: StorageConfig{
			DatabasePath: filepath.Join(DefaultDir(), "bins.db"),
		},
		Session: SessionConfig{
			TTL: "24h",
		},
		UI: UIConfig{
			RefreshInterval: "30s",
			Theme:           ThemeAuto,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// DefaultDir returns ~/.bins, or .bins when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bins"
	}
	return filepath.Join(home, ".bins")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := strings.TrimSpace(os.Getenv("BINS_BASE_URL")); v != "" {
		c.API.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv("BINS_DB")); v != "" {
		c.Storage.DatabasePath = v
	}
	if v := strings.TrimSpace(os.Getenv("BINS_LOG_LEVEL")); v != "" {
		c.Logging.Level = v
	}
	if os.Getenv("BINS_DARK_MODE") == "1" {
		c.UI.Theme = ThemeDark
	}
}

// GetAPITimeout returns the HTTP timeout as a duration.
func (c *Config) GetAPITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// GetSessionTTL returns the session TTL. Zero means sessions never expire
// locally.
func (c *Config) GetSessionTTL() time.Duration {
	if strings.TrimSpace(c.Session.TTL) == "0" {
		return 0
	}
	d, err := time.ParseDuration(c.Session.TTL)
	if err != nil || d < 0 {
		return 24 * time.Hour
	}
	return d
}

// GetRefreshInterval returns the dashboard auto-refresh period.
func (c *Config) GetRefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.UI.RefreshInterval)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// Validate validates the configuration. The theme name is normalized to
// lower case.
func (c *Config) Validate() error {
	base := strings.TrimSpace(c.API.BaseURL)
	if base == "" {
		return fmt.Errorf("api.base_url must not be empty")
	}
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL: %q", base)
	}
	if err := positiveDuration("api.timeout", c.API.Timeout); err != nil {
		return err
	}
	if err := positiveDuration("ui.refresh_interval", c.UI.RefreshInterval); err != nil {
		return err
	}
	if ttl := strings.TrimSpace(c.Session.TTL); ttl != "0" {
		if err := positiveDuration("session.ttl", ttl); err != nil {
			return err
		}
	}
	if strings.TrimSpace(c.Storage.DatabasePath) == "" {
		return fmt.Errorf("storage.database_path must not be empty")
	}

	c.UI.Theme = strings.ToLower(strings.TrimSpace(c.UI.Theme))
	switch c.UI.Theme {
	case ThemeAuto, ThemeLight, ThemeDark, "":
	default:
		return fmt.Errorf("invalid ui.theme: %q (valid: auto, light, dark)", c.UI.Theme)
	}
	return c.Logging.Validate()
}

func positiveDuration(field, v string) error {
	d, err := time.ParseDuration(strings.TrimSpace(v))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", field, err)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive, got %s", field, v)
	}
	return nil
}
