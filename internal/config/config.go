// Package config loads radiograph configuration from an optional TOML base
// file, an optional per-environment overlay, and RADIOGRAPH_* environment
// variables, in that order of precedence (later wins).
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

const (
	BaseConfigFile       = "radiograph.toml"
	OverlayConfigPattern = "radiograph.%s.toml"

	EnvRadiographEnv = "RADIOGRAPH_ENV"
)

// Config is the root configuration.
type Config struct {
	Analysis AnalysisConfig `toml:"analysis"`
	Logging  LoggingConfig  `toml:"logging"`
	Temporal TemporalConfig `toml:"temporal"`
	Report   ReportConfig   `toml:"report"`
	Workflow WorkflowConfig `toml:"workflow"`
}

// Env returns the RADIOGRAPH_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvRadiographEnv); env != "" {
		return env
	}
	return "local"
}

// Load reads basePath (BaseConfigFile when empty) if it exists, applies the
// overlay for RADIOGRAPH_ENV from the same directory, and finalizes all
// values. With no files present, defaults and environment variables provide
// everything.
func Load(basePath string) (*Config, error) {
	explicit := basePath != ""
	if !explicit {
		basePath = BaseConfigFile
	}

	cfg := &Config{}
	if _, err := os.Stat(basePath); err == nil {
		loaded, err := load(basePath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else if explicit {
		return nil, fmt.Errorf("config file %s: %w", basePath, err)
	}

	if path := overlayPath(filepath.Dir(basePath)); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.Finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sections.
func (c *Config) Merge(overlay *Config) {
	c.Analysis.Merge(&overlay.Analysis)
	c.Logging.Merge(&overlay.Logging)
	c.Temporal.Merge(&overlay.Temporal)
	c.Report.Merge(&overlay.Report)
	c.Workflow.Merge(&overlay.Workflow)
}

// Finalize applies defaults and environment overrides, then validates.
func (c *Config) Finalize() error {
	if err := c.Analysis.Finalize(); err != nil {
		return fmt.Errorf("analysis: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Temporal.Finalize(); err != nil {
		return fmt.Errorf("temporal: %w", err)
	}
	if err := c.Report.Finalize(); err != nil {
		return fmt.Errorf("report: %w", err)
	}
	if err := c.Workflow.Finalize(); err != nil {
		return fmt.Errorf("workflow: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func overlayPath(dir string) string {
	if env := os.Getenv(EnvRadiographEnv); env != "" {
		path := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
