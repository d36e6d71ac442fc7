// Package config holds the daemon configuration: which browser backend to
// drive, how to reach it, and which pages count as video pages. User-facing
// settings (the popup toggles) live in pkg/settings instead.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"github.com/bananameter/playtabq/pkg/match"
)

// Backend selects how the daemon talks to Chromium.
type Backend string

const (
	// BackendPlaywright launches a browser with a persistent profile
	BackendPlaywright Backend = "playwright"
	// BackendCDP speaks the DevTools protocol, attaching to cdp_url or
	// launching Chrome with user_data_dir
	BackendCDP Backend = "cdp"
)

// Config represents the daemon configuration
type Config struct {
	// Browser connection
	Backend         Backend  `yaml:"backend" json:"backend"`
	CDPURL          string   `yaml:"cdp_url" json:"cdp_url"`
	UserDataDir     string   `yaml:"user_data_dir" json:"user_data_dir"`
	BrowserHeadless bool     `yaml:"browser_headless" json:"browser_headless"`
	StartURLs       []string `yaml:"start_urls" json:"start_urls"`

	// Video page matching
	VideoHost     string   `yaml:"video_host" json:"video_host"`
	ExtraPatterns []string `yaml:"extra_patterns" json:"extra_patterns"`

	// Path of the JSON settings file
	SettingsPath string `yaml:"settings_path" json:"settings_path"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`
	// Directory for session log files; empty means ~/.playtabq/logs
	Directory string `yaml:"directory" json:"directory"`
}

// DefaultConfig returns a configuration that launches a Playwright browser
// with a profile under the user's home directory.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	base := filepath.Join(home, ".playtabq")
	return &Config{
		Backend:      BackendPlaywright,
		UserDataDir:  filepath.Join(base, "profile"),
		VideoHost:    match.DefaultVideoHost,
		SettingsPath: filepath.Join(base, "settings.json"),
		Logging:      LoggingConfig{Verbosity: "normal"},
	}
}

// Load reads a YAML file over DefaultConfig. Missing keys keep their
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return cfg, nil
}

// Validate validates the configuration and fills in derived defaults
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendPlaywright:
		if c.UserDataDir == "" {
			return fmt.Errorf("user_data_dir is required for the playwright backend")
		}
	case BackendCDP:
		if c.CDPURL == "" && c.UserDataDir == "" {
			return fmt.Errorf("cdp_url or user_data_dir is required for the cdp backend")
		}
	default:
		return fmt.Errorf("invalid backend: %s (must be 'playwright' or 'cdp')", c.Backend)
	}

	if c.VideoHost == "" {
		c.VideoHost = match.DefaultVideoHost
	}

	for _, pattern := range c.ExtraPatterns {
		if _, err := glob.Compile(pattern); err != nil {
			return fmt.Errorf("invalid extra pattern %q: %w", pattern, err)
		}
	}

	if c.SettingsPath == "" {
		return fmt.Errorf("settings_path is required")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// Matcher compiles the video-page matcher described by the configuration.
func (c *Config) Matcher() (*match.Matcher, error) {
	return match.New(c.VideoHost, c.ExtraPatterns...)
}
