package config

import (
	"fmt"
	"maps"
	"os"
	"strconv"
	"time"

	"github.com/ahrav/go-radiograph/internal/analysis"
)

// Environment overrides for the [analysis] section.
const (
	EnvAnalysisBaseURL        = "RADIOGRAPH_ANALYSIS_BASE_URL"
	EnvAnalysisTimeout        = "RADIOGRAPH_ANALYSIS_TIMEOUT"
	EnvAnalysisHealthTimeout  = "RADIOGRAPH_ANALYSIS_HEALTH_TIMEOUT"
	EnvAnalysisRateLimit      = "RADIOGRAPH_ANALYSIS_RATE_LIMIT"
	EnvAnalysisRateLimitBurst = "RADIOGRAPH_ANALYSIS_RATE_LIMIT_BURST"
)

// AnalysisConfig locates the remote analysis service.
type AnalysisConfig struct {
	BaseURL          string            `toml:"base_url"`
	HealthPath       string            `toml:"health_path"`
	AnalyzePath      string            `toml:"analyze_path"`
	ModelInfoPath    string            `toml:"model_info_path"`
	Timeout          string            `toml:"timeout"`
	HealthTimeout    string            `toml:"health_timeout"`
	MaxResponseBytes int64             `toml:"max_response_bytes"`
	Headers          map[string]string `toml:"headers"`
	RateLimit        RateLimitConfig   `toml:"rate_limit"`
}

// RateLimitConfig bounds outbound request rate. Enabled is a pointer so an
// overlay can switch it off.
type RateLimitConfig struct {
	Enabled           *bool   `toml:"enabled"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// Merge overwrites non-zero fields from overlay.
func (c *AnalysisConfig) Merge(overlay *AnalysisConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.HealthPath != "" {
		c.HealthPath = overlay.HealthPath
	}
	if overlay.AnalyzePath != "" {
		c.AnalyzePath = overlay.AnalyzePath
	}
	if overlay.ModelInfoPath != "" {
		c.ModelInfoPath = overlay.ModelInfoPath
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
	if overlay.HealthTimeout != "" {
		c.HealthTimeout = overlay.HealthTimeout
	}
	if overlay.MaxResponseBytes != 0 {
		c.MaxResponseBytes = overlay.MaxResponseBytes
	}
	if len(overlay.Headers) > 0 {
		if c.Headers == nil {
			c.Headers = make(map[string]string, len(overlay.Headers))
		}
		maps.Copy(c.Headers, overlay.Headers)
	}
	if overlay.RateLimit.Enabled != nil {
		c.RateLimit.Enabled = overlay.RateLimit.Enabled
	}
	if overlay.RateLimit.RequestsPerSecond != 0 {
		c.RateLimit.RequestsPerSecond = overlay.RateLimit.RequestsPerSecond
	}
	if overlay.RateLimit.Burst != 0 {
		c.RateLimit.Burst = overlay.RateLimit.Burst
	}
}

// Finalize applies defaults, environment overrides, and validation.
func (c *AnalysisConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	_, err := c.ClientConfig()
	return err
}

func (c *AnalysisConfig) loadDefaults() {
	def := analysis.DefaultConfig()
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.HealthPath == "" {
		c.HealthPath = def.HealthPath
	}
	if c.AnalyzePath == "" {
		c.AnalyzePath = def.AnalyzePath
	}
	if c.ModelInfoPath == "" {
		c.ModelInfoPath = def.ModelInfoPath
	}
	if c.Timeout == "" {
		c.Timeout = def.AnalyzeTimeout.String()
	}
	if c.HealthTimeout == "" {
		c.HealthTimeout = def.HealthTimeout.String()
	}
	if c.MaxResponseBytes == 0 {
		c.MaxResponseBytes = def.MaxResponseBytes
	}
	if c.RateLimit.Enabled == nil {
		enabled := def.RateLimit.Enabled
		c.RateLimit.Enabled = &enabled
	}
	if c.RateLimit.RequestsPerSecond == 0 {
		c.RateLimit.RequestsPerSecond = def.RateLimit.RequestsPerSecond
	}
	if c.RateLimit.Burst == 0 {
		c.RateLimit.Burst = def.RateLimit.BurstSize
	}
}

func (c *AnalysisConfig) loadEnv() error {
	if v := os.Getenv(EnvAnalysisBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvAnalysisTimeout); v != "" {
		c.Timeout = v
	}
	if v := os.Getenv(EnvAnalysisHealthTimeout); v != "" {
		c.HealthTimeout = v
	}
	if v := os.Getenv(EnvAnalysisRateLimit); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAnalysisRateLimit, err)
		}
		enabled := rps > 0
		c.RateLimit.Enabled = &enabled
		if enabled {
			c.RateLimit.RequestsPerSecond = rps
		}
	}
	if v := os.Getenv(EnvAnalysisRateLimitBurst); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvAnalysisRateLimitBurst, err)
		}
		c.RateLimit.Burst = burst
	}
	return nil
}

// ClientConfig converts the section into a validated analysis.Config.
func (c *AnalysisConfig) ClientConfig() (*analysis.Config, error) {
	timeout, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid timeout: %w", err)
	}
	healthTimeout, err := time.ParseDuration(c.HealthTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid health_timeout: %w", err)
	}

	cfg := analysis.DefaultConfig()
	cfg.BaseURL = c.BaseURL
	cfg.HealthPath = c.HealthPath
	cfg.AnalyzePath = c.AnalyzePath
	cfg.ModelInfoPath = c.ModelInfoPath
	cfg.AnalyzeTimeout = timeout
	cfg.HealthTimeout = healthTimeout
	cfg.MaxResponseBytes = c.MaxResponseBytes
	cfg.Headers = maps.Clone(c.Headers)
	if c.RateLimit.Enabled != nil {
		cfg.RateLimit.Enabled = *c.RateLimit.Enabled
	}
	cfg.RateLimit.RequestsPerSecond = c.RateLimit.RequestsPerSecond
	cfg.RateLimit.BurstSize = c.RateLimit.Burst

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
