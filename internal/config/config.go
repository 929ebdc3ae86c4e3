// Package config holds the immutable run parameters for the monitor.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration is a time.Duration that unmarshals from a YAML string like "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	d.Duration = dur
	return nil
}

// LogConfig holds settings for the optional rotating log file.
type LogConfig struct {
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// Config is the full monitor configuration. It is set once at startup and
// never mutated afterwards.
type Config struct {
	Host      string   `yaml:"host"`
	Interval  Duration `yaml:"interval"`
	Timeout   Duration `yaml:"timeout"`
	Interface string   `yaml:"interface"`

	// RunFor bounds the total run length; zero means run until interrupted.
	RunFor Duration `yaml:"duration"`

	// WindowSize caps the rolling latency and failure-reason buffers.
	WindowSize int `yaml:"window_size"`

	// StatsEvery is the probe-cycle cadence of periodic STAT summaries.
	StatsEvery int `yaml:"stats_every"`

	Log LogConfig `yaml:"log"`
}

// Default returns the built-in configuration, matching the CLI defaults.
func Default() *Config {
	return &Config{
		Host:       "8.8.8.8",
		Interval:   Duration{10 * time.Second},
		Timeout:    Duration{5 * time.Second},
		Interface:  "wwan0",
		WindowSize: 100,
		StatsEvery: 10,
		Log: LogConfig{
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 14,
		},
	}
}

// Load reads and parses the YAML config at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first invalid parameter, if any.
func (c *Config) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("host is required")
	}
	if c.Interface == "" {
		return fmt.Errorf("interface is required")
	}
	if c.Interval.Duration <= 0 {
		return fmt.Errorf("interval must be positive, got %v", c.Interval.Duration)
	}
	if c.Timeout.Duration <= 0 {
		return fmt.Errorf("timeout must be positive, got %v", c.Timeout.Duration)
	}
	if c.RunFor.Duration < 0 {
		return fmt.Errorf("duration must not be negative, got %v", c.RunFor.Duration)
	}
	if c.WindowSize < 1 {
		return fmt.Errorf("window_size must be at least 1, got %d", c.WindowSize)
	}
	if c.StatsEvery < 1 {
		return fmt.Errorf("stats_every must be at least 1, got %d", c.StatsEvery)
	}
	return nil
}
