// Package config handles the XDG configuration directory and the settings
// file inside it.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "taskboard"

	// SettingsFile is the settings filename inside the config directory.
	SettingsFile = "config.yaml"
)

// Environment overrides.
const (
	EnvAPIURL = "TASKBOARD_API_URL"
	EnvToken  = "TASKBOARD_TOKEN"
	EnvMode   = "TASKBOARD_MODE"
)

// Defaults.
const (
	DefaultAPIURL         = "http://localhost:4000"
	DefaultProbeTimeout   = 1500 * time.Millisecond
	DefaultRequestTimeout = 5 * time.Second
	DefaultStaleTime      = 30 * time.Second
	DefaultListenAddr     = ":4000"
	DefaultLogLevel       = "warn"
)

// Settings are read from config.yaml. Durations use Go syntax ("1.5s").
type Settings struct {
	APIURL         string        `yaml:"api_url"`
	Token          string        `yaml:"token"`
	ProbeTimeout   time.Duration `yaml:"probe_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	StaleTime      time.Duration `yaml:"stale_time"`
	ListenAddr     string        `yaml:"listen_addr"`
	LogLevel       string        `yaml:"log_level"`
	LogFormat      string        `yaml:"log_format"`
	Trace          string        `yaml:"trace"`
	FuzzySearch    bool          `yaml:"fuzzy_search"`
	Mode           string        `yaml:"mode"`
}

// DefaultSettings returns the settings used when no file exists.
func DefaultSettings() Settings {
	return Settings{
		APIURL:         DefaultAPIURL,
		ProbeTimeout:   DefaultProbeTimeout,
		RequestTimeout: DefaultRequestTimeout,
		StaleTime:      DefaultStaleTime,
		ListenAddr:     DefaultListenAddr,
		LogLevel:       DefaultLogLevel,
		LogFormat:      "text",
		Trace:          "none",
		Mode:           "auto",
	}
}

// Validate checks the settings for values no component can work with.
func (s Settings) Validate() error {
	if s.ProbeTimeout >= s.RequestTimeout {
		return fmt.Errorf("probe_timeout %s must be shorter than request_timeout %s", s.ProbeTimeout, s.RequestTimeout)
	}
	if s.StaleTime < 0 {
		return fmt.Errorf("stale_time must not be negative")
	}
	switch s.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log_format %q (want text or json)", s.LogFormat)
	}
	switch s.Mode {
	case "auto", "network", "fallback", "memory":
	default:
		return fmt.Errorf("unknown mode %q (want auto, network or fallback)", s.Mode)
	}
	return nil
}

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	Settings Settings
}

// New creates a Config with default settings for the default or specified
// config directory. If configDir is empty, uses XDG_CONFIG_HOME/taskboard or
// $HOME/.config/taskboard.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	return &Config{Dir: dir, Settings: DefaultSettings()}, nil
}

// Load creates a Config and reads config.yaml from it, if present, then
// applies environment overrides and validates the result.
func Load(configDir string) (*Config, error) {
	cfg, err := New(configDir)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(cfg.SettingsPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read %s: %w", SettingsFile, err)
	case len(data) > 0:
		if err := yaml.Unmarshal(data, &cfg.Settings); err != nil {
			return nil, fmt.Errorf("parse %s: %w", SettingsFile, err)
		}
	}

	applyEnvOverrides(&cfg.Settings)
	normalize(&cfg.Settings)
	if err := cfg.Settings.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.SettingsPath(), err)
	}
	return cfg, nil
}

func applyEnvOverrides(s *Settings) {
	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		s.APIURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		s.Token = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvMode)); v != "" {
		s.Mode = v
	}
}

// normalize fills zero values left by a partial file.
func normalize(s *Settings) {
	d := DefaultSettings()
	if s.APIURL == "" {
		s.APIURL = d.APIURL
	}
	if s.ProbeTimeout <= 0 {
		s.ProbeTimeout = d.ProbeTimeout
	}
	if s.RequestTimeout <= 0 {
		s.RequestTimeout = d.RequestTimeout
	}
	if s.StaleTime == 0 {
		s.StaleTime = d.StaleTime
	}
	if s.ListenAddr == "" {
		s.ListenAddr = d.ListenAddr
	}
	if s.LogLevel == "" {
		s.LogLevel = d.LogLevel
	}
	s.LogFormat = strings.ToLower(s.LogFormat)
	if s.LogFormat == "" {
		s.LogFormat = d.LogFormat
	}
	if s.Trace == "" {
		s.Trace = d.Trace
	}
	s.Mode = strings.ToLower(s.Mode)
	if s.Mode == "" {
		s.Mode = d.Mode
	}
}

// LogLevel is the effective log level: debug when --debug is set.
func (c *Config) LogLevel() string {
	if c.Debug {
		return "debug"
	}
	return c.Settings.LogLevel
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// SettingsPath returns the path to config.yaml.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasSettings checks if config.yaml exists.
func (c *Config) HasSettings() bool {
	_, err := os.Stat(c.SettingsPath())
	return err == nil
}

// Save writes the settings to config.yaml with mode 0600, since the file
// may hold a token.
func (c *Config) Save() error {
	if err := c.EnsureDir(); err != nil {
		return err
	}
	data, err := yaml.Marshal(c.Settings)
	if err != nil {
		return err
	}
	return os.WriteFile(c.SettingsPath(), data, 0600)
}
