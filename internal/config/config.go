// Package config loads maestro configuration from .maestro/config.yaml,
// applying defaults and a small set of environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all maestro configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Workflow engine settings
	Engine EngineConfig `yaml:"engine"`

	// World model settings
	World WorldConfig `yaml:"world"`

	// Request tracker settings
	Tracker TrackerConfig `yaml:"tracker"`

	// Incident recording
	Incidents IncidentConfig `yaml:"incidents"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// EngineConfig configures the workflow engine.
type EngineConfig struct {
	// PhaseTimeout bounds a single phase's collaborator call.
	// Zero or empty disables the per-phase timeout.
	PhaseTimeout string `yaml:"phase_timeout"`

	// MaxConcurrentRuns bounds the manager's parallel run fan-out.
	MaxConcurrentRuns int `yaml:"max_concurrent_runs"`
}

// WorldConfig configures world model persistence.
type WorldConfig struct {
	SnapshotPath string `yaml:"snapshot_path"`
	BackupPath   string `yaml:"backup_path"`
}

// TrackerConfig configures the request history repository.
type TrackerConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// IncidentConfig configures case file recording.
type IncidentConfig struct {
	Directory  string `yaml:"directory"`
	LogExcerpt int    `yaml:"log_excerpt"` // number of recent log entries captured per dossier
}

// LoggingConfig configures categorized file logging.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"`
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the configuration used when no config file exists.
// Paths are relative to the workspace root.
func DefaultConfig() *Config {
	return &Config{
		Name:    "maestro",
		Version: "1.0.0",
		Engine: EngineConfig{
			PhaseTimeout:      "5m",
			MaxConcurrentRuns: 4,
		},
		World: WorldConfig{
			SnapshotPath: ".maestro/world_model.json",
			BackupPath:   ".maestro/world_model.backup.json",
		},
		Tracker: TrackerConfig{
			DatabasePath: ".maestro/tracker.db",
		},
		Incidents: IncidentConfig{
			Directory:  ".maestro/casefiles",
			LogExcerpt: 20,
		},
		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// Load reads .maestro/config.yaml under the workspace, falling back to
// defaults when the file is absent. Environment overrides apply last.
func Load(workspace string) (*Config, error) {
	cfg := DefaultConfig()

	path := filepath.Join(workspace, ".maestro", "config.yaml")
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps MAESTRO_* environment variables onto the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MAESTRO_PHASE_TIMEOUT"); v != "" {
		cfg.Engine.PhaseTimeout = v
	}
	if v := os.Getenv("MAESTRO_DEBUG"); v == "1" || v == "true" {
		cfg.Logging.DebugMode = true
	}
	if v := os.Getenv("MAESTRO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks fields that would otherwise fail deep inside a run.
func (c *Config) Validate() error {
	if c.Engine.PhaseTimeout != "" {
		if _, err := time.ParseDuration(c.Engine.PhaseTimeout); err != nil {
			return fmt.Errorf("invalid engine.phase_timeout %q: %w", c.Engine.PhaseTimeout, err)
		}
	}
	if c.Engine.MaxConcurrentRuns < 1 {
		return fmt.Errorf("engine.max_concurrent_runs must be >= 1, got %d", c.Engine.MaxConcurrentRuns)
	}
	if c.Incidents.LogExcerpt < 0 {
		return fmt.Errorf("incidents.log_excerpt must be >= 0, got %d", c.Incidents.LogExcerpt)
	}
	return nil
}

// PhaseTimeout returns the parsed per-phase timeout, zero when disabled.
func (c *Config) PhaseTimeout() time.Duration {
	if c.Engine.PhaseTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.Engine.PhaseTimeout)
	if err != nil {
		return 0
	}
	return d
}
