package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the complete configuration for regsync
type Config struct {
	// DataDir holds the database, lock and pid files
	DataDir string `mapstructure:"data_dir"`

	// Log configures logging output
	Log LogConfig `mapstructure:"log"`

	// Probe configures connectivity testing
	Probe ProbeConfig `mapstructure:"probe"`

	// Trigger configures the scheduled-trigger daemon
	Trigger TriggerConfig `mapstructure:"trigger"`
}

// LogConfig configures the logger
type LogConfig struct {
	// Level is one of debug, info, warn, error
	Level string `mapstructure:"level"`

	// Format is text or json
	Format string `mapstructure:"format"`

	// File enables rotated file output when a path is set
	File FileLogConfig `mapstructure:"file"`
}

// FileLogConfig configures rotated file logging
type FileLogConfig struct {
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	MaxBackups int    `mapstructure:"max_backups"`
	Compress   bool   `mapstructure:"compress"`
}

// ProbeConfig configures the connectivity prober
type ProbeConfig struct {
	// TimeoutSeconds bounds a single probe
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// Timeout returns the probe timeout as a duration
func (p ProbeConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// TriggerConfig configures the trigger daemon
type TriggerConfig struct {
	// IntervalSeconds is the polling period for due schedules
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// Interval returns the polling period as a duration
func (t TriggerConfig) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

// Validate checks if the configuration is complete and consistent
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}
	if c.Probe.TimeoutSeconds <= 0 {
		return fmt.Errorf("probe timeout must be positive, got %d", c.Probe.TimeoutSeconds)
	}
	if c.Trigger.IntervalSeconds <= 0 {
		return fmt.Errorf("trigger interval must be positive, got %d", c.Trigger.IntervalSeconds)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s", c.Log.Level)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}
	return nil
}

// GetDataDir returns the data directory with ~ and env vars expanded
func (c *Config) GetDataDir() string {
	return ExpandPath(c.DataDir)
}

// ExpandPath expands ~ and environment variables in a path
func ExpandPath(path string) string {
	// Expand ~ to home directory
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err == nil {
			if len(path) > 1 && (path[1] == '/' || path[1] == filepath.Separator) {
				path = filepath.Join(home, path[2:])
			} else if len(path) == 1 {
				path = home
			}
		}
	}
	// Expand environment variables
	path = os.ExpandEnv(path)
	return filepath.Clean(path)
}
