package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ahrav/go-radiograph/internal/report"
	"github.com/ahrav/go-radiograph/internal/workflow"
)

// Environment overrides for the remaining sections.
const (
	EnvLogLevel          = "RADIOGRAPH_LOG_LEVEL"
	EnvLogFormat         = "RADIOGRAPH_LOG_FORMAT"
	EnvTemporalEnabled   = "RADIOGRAPH_TEMPORAL_ENABLED"
	EnvTemporalHostPort  = "RADIOGRAPH_TEMPORAL_HOST_PORT"
	EnvTemporalNamespace = "RADIOGRAPH_TEMPORAL_NAMESPACE"
	EnvTemporalTaskQueue = "RADIOGRAPH_TEMPORAL_TASK_QUEUE"
	EnvReportFormat      = "RADIOGRAPH_REPORT_FORMAT"
	EnvReportTimezone    = "RADIOGRAPH_REPORT_TIMEZONE"
)

// Section defaults.
const (
	DefaultLogLevel          = "info"
	DefaultLogFormat         = "text"
	DefaultTemporalHostPort  = "localhost:7233"
	DefaultTemporalNamespace = "default"
	DefaultReportFormat      = "text"
	DefaultProgressInterval  = 250 * time.Millisecond
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `toml:"level" validate:"oneof=debug info warn error"`
	Format string `toml:"format" validate:"oneof=text json"`
}

// Merge overwrites non-zero fields from overlay.
func (c *LoggingConfig) Merge(overlay *LoggingConfig) {
	if overlay.Level != "" {
		c.Level = overlay.Level
	}
	if overlay.Format != "" {
		c.Format = overlay.Format
	}
}

// Finalize applies defaults, environment overrides, and validation.
func (c *LoggingConfig) Finalize() error {
	if c.Level == "" {
		c.Level = DefaultLogLevel
	}
	if c.Format == "" {
		c.Format = DefaultLogFormat
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Format = v
	}
	return validate.Struct(c)
}

// TemporalConfig routes analyses through a Temporal worker when Enabled.
type TemporalConfig struct {
	Enabled         bool   `toml:"enabled"`
	HostPort        string `toml:"host_port" validate:"required"`
	Namespace       string `toml:"namespace" validate:"required"`
	TaskQueue       string `toml:"task_queue" validate:"required"`
	WorkflowTimeout string `toml:"workflow_timeout"`
}

// Merge overwrites non-zero fields from overlay. Enabled can only be turned
// on by an overlay; use RADIOGRAPH_TEMPORAL_ENABLED to turn it off.
func (c *TemporalConfig) Merge(overlay *TemporalConfig) {
	if overlay.Enabled {
		c.Enabled = true
	}
	if overlay.HostPort != "" {
		c.HostPort = overlay.HostPort
	}
	if overlay.Namespace != "" {
		c.Namespace = overlay.Namespace
	}
	if overlay.TaskQueue != "" {
		c.TaskQueue = overlay.TaskQueue
	}
	if overlay.WorkflowTimeout != "" {
		c.WorkflowTimeout = overlay.WorkflowTimeout
	}
}

// Finalize applies defaults, environment overrides, and validation.
func (c *TemporalConfig) Finalize() error {
	if c.HostPort == "" {
		c.HostPort = DefaultTemporalHostPort
	}
	if c.Namespace == "" {
		c.Namespace = DefaultTemporalNamespace
	}
	if c.TaskQueue == "" {
		c.TaskQueue = workflow.TaskQueue
	}

	if v := os.Getenv(EnvTemporalEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", EnvTemporalEnabled, err)
		}
		c.Enabled = enabled
	}
	if v := os.Getenv(EnvTemporalHostPort); v != "" {
		c.HostPort = v
	}
	if v := os.Getenv(EnvTemporalNamespace); v != "" {
		c.Namespace = v
	}
	if v := os.Getenv(EnvTemporalTaskQueue); v != "" {
		c.TaskQueue = v
	}

	if _, err := c.Timeout(); err != nil {
		return err
	}
	return validate.Struct(c)
}

// Timeout returns the parsed workflow timeout, or zero when unset.
func (c *TemporalConfig) Timeout() (time.Duration, error) {
	if c.WorkflowTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.WorkflowTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid workflow_timeout: %w", err)
	}
	return d, nil
}

// ReportConfig customizes the letterhead and the default export format.
type ReportConfig struct {
	Format             string `toml:"format" validate:"oneof=json text pdf"`
	FacilityName       string `toml:"facility_name"`
	Department         string `toml:"department"`
	Address            string `toml:"address"`
	Phone              string `toml:"phone"`
	Fax                string `toml:"fax"`
	OrderingPhysician  string `toml:"ordering_physician"`
	ReadingRadiologist string `toml:"reading_radiologist"`
	ModelName          string `toml:"model_name"`
	Timezone           string `toml:"timezone"`
}

// Merge overwrites non-zero fields from overlay.
func (c *ReportConfig) Merge(overlay *ReportConfig) {
	mergeString(&c.Format, overlay.Format)
	mergeString(&c.FacilityName, overlay.FacilityName)
	mergeString(&c.Department, overlay.Department)
	mergeString(&c.Address, overlay.Address)
	mergeString(&c.Phone, overlay.Phone)
	mergeString(&c.Fax, overlay.Fax)
	mergeString(&c.OrderingPhysician, overlay.OrderingPhysician)
	mergeString(&c.ReadingRadiologist, overlay.ReadingRadiologist)
	mergeString(&c.ModelName, overlay.ModelName)
	mergeString(&c.Timezone, overlay.Timezone)
}

// Finalize applies defaults, environment overrides, and validation.
func (c *ReportConfig) Finalize() error {
	if c.Format == "" {
		c.Format = DefaultReportFormat
	}
	if v := os.Getenv(EnvReportFormat); v != "" {
		c.Format = v
	}
	if v := os.Getenv(EnvReportTimezone); v != "" {
		c.Timezone = v
	}
	if err := validate.Struct(c); err != nil {
		return err
	}
	_, err := c.AssemblerConfig()
	return err
}

// AssemblerConfig overlays the configured values onto report.DefaultConfig.
func (c *ReportConfig) AssemblerConfig() (report.Config, error) {
	cfg := report.DefaultConfig()
	mergeString(&cfg.Facility.Name, c.FacilityName)
	mergeString(&cfg.Facility.Department, c.Department)
	mergeString(&cfg.Facility.Address, c.Address)
	mergeString(&cfg.Facility.Phone, c.Phone)
	mergeString(&cfg.Facility.Fax, c.Fax)
	mergeString(&cfg.OrderingPhysician, c.OrderingPhysician)
	mergeString(&cfg.ReadingRadiologist, c.ReadingRadiologist)
	mergeString(&cfg.ModelName, c.ModelName)

	if c.Timezone != "" {
		loc, err := time.LoadLocation(c.Timezone)
		if err != nil {
			return report.Config{}, fmt.Errorf("invalid timezone: %w", err)
		}
		cfg.Location = loc
	}
	return cfg, nil
}

// ExportFormat returns the configured default export format.
func (c *ReportConfig) ExportFormat() report.Format { return report.Format(c.Format) }

// WorkflowConfig tunes the progress display.
type WorkflowConfig struct {
	ProgressTimeConstant string `toml:"progress_time_constant"`
	ProgressInterval     string `toml:"progress_interval"`
}

// Merge overwrites non-zero fields from overlay.
func (c *WorkflowConfig) Merge(overlay *WorkflowConfig) {
	mergeString(&c.ProgressTimeConstant, overlay.ProgressTimeConstant)
	mergeString(&c.ProgressInterval, overlay.ProgressInterval)
}

// Finalize applies defaults and validation.
func (c *WorkflowConfig) Finalize() error {
	if c.ProgressTimeConstant == "" {
		c.ProgressTimeConstant = workflow.DefaultProgressTimeConstant.String()
	}
	if c.ProgressInterval == "" {
		c.ProgressInterval = DefaultProgressInterval.String()
	}
	if _, err := c.Estimator(); err != nil {
		return err
	}
	_, err := c.Interval()
	return err
}

// Estimator returns the progress curve for the configured time constant.
func (c *WorkflowConfig) Estimator() (workflow.ProgressEstimator, error) {
	tau, err := time.ParseDuration(c.ProgressTimeConstant)
	if err != nil {
		return workflow.ProgressEstimator{}, fmt.Errorf("invalid progress_time_constant: %w", err)
	}
	if tau <= 0 {
		return workflow.ProgressEstimator{}, fmt.Errorf("progress_time_constant must be positive")
	}
	return workflow.ProgressEstimator{TimeConstant: tau}, nil
}

// Interval returns how often progress is redrawn.
func (c *WorkflowConfig) Interval() (time.Duration, error) {
	d, err := time.ParseDuration(c.ProgressInterval)
	if err != nil {
		return 0, fmt.Errorf("invalid progress_interval: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("progress_interval must be positive")
	}
	return d, nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
