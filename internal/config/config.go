// Package config loads the deeptube configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file name inside the config directory.
const FileName = "config.yaml"

// PassphraseEnv names the variable holding the ledger passphrase.
// The passphrase is never written to the config file.
const PassphraseEnv = "DEEPTUBE_PASSPHRASE"

// Config holds all deeptube configuration.
type Config struct {
	// Account is the default ledger account for CLI and picker confirms.
	Account string `yaml:"account"`

	Catalog CatalogConfig `yaml:"catalog"`
	Ledger  LedgerConfig  `yaml:"ledger"`
	Server  ServerConfig  `yaml:"server"`
	Picker  PickerConfig  `yaml:"picker"`
	Logging LoggingConfig `yaml:"logging"`
}

// CatalogConfig selects the country catalog.
type CatalogConfig struct {
	Path string `yaml:"path"` // empty = embedded catalog
}

// LedgerConfig configures the selection ledger.
type LedgerConfig struct {
	Enabled              bool   `yaml:"enabled"`
	Path                 string `yaml:"path"` // relative to the config directory
	ChangeIntervalMonths int    `yaml:"change_interval_months"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	ReadTimeout     string `yaml:"read_timeout"`
	WriteTimeout    string `yaml:"write_timeout"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

// PickerConfig configures the interactive picker.
type PickerConfig struct {
	ToastTimeout string `yaml:"toast_timeout"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Ledger: LedgerConfig{
			Enabled:              true,
			Path:                 "ledger.db",
			ChangeIntervalMonths: 1,
		},
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     "10s",
			WriteTimeout:    "10s",
			ShutdownTimeout: "5s",
		},
		Picker: PickerConfig{
			ToastTimeout: "3s",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file.
// A missing file yields the defaults. Environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DEEPTUBE_ACCOUNT"); v != "" {
		c.Account = v
	}
	if v := os.Getenv("DEEPTUBE_CATALOG"); v != "" {
		c.Catalog.Path = v
	}
	if v := os.Getenv("DEEPTUBE_LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("DEEPTUBE_CHANGE_INTERVAL_MONTHS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Ledger.ChangeIntervalMonths = n
		}
	}
	if v := os.Getenv("DEEPTUBE_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DEEPTUBE_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

var validLevels = []string{"debug", "info", "warn", "error"}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validLevel := false
	for _, l := range validLevels {
		if c.Logging.Level == l {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("invalid log level: %s (valid: %v)", c.Logging.Level, validLevels)
	}

	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("invalid log format: %s (valid: json, console)", c.Logging.Format)
	}

	if c.Ledger.Enabled && c.Ledger.Path == "" {
		return fmt.Errorf("ledger enabled but no ledger path configured")
	}

	return nil
}

// LedgerPath resolves the ledger path against the config directory.
func (c *Config) LedgerPath(configDir string) string {
	if filepath.IsAbs(c.Ledger.Path) {
		return c.Ledger.Path
	}
	return filepath.Join(configDir, c.Ledger.Path)
}

// GetReadTimeout returns the server read timeout as a duration.
func (c *Config) GetReadTimeout() time.Duration {
	return parseDuration(c.Server.ReadTimeout, 10*time.Second)
}

// GetWriteTimeout returns the server write timeout as a duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return parseDuration(c.Server.WriteTimeout, 10*time.Second)
}

// GetShutdownTimeout returns the graceful shutdown timeout as a duration.
func (c *Config) GetShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 5*time.Second)
}

// GetToastTimeout returns how long the picker shows a toast.
func (c *Config) GetToastTimeout() time.Duration {
	return parseDuration(c.Picker.ToastTimeout, 3*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
