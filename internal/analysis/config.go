package analysis

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
)

// Service endpoint defaults.
const (
	DefaultBaseURL       = "http://localhost:8000"
	DefaultHealthPath    = "/health"
	DefaultAnalyzePath   = "/analyze"
	DefaultModelInfoPath = "/model-info"
)

// Timeout and connection constants.
const (
	DefaultAnalyzeTimeout     = 30 * time.Second
	DefaultHealthTimeout      = 5 * time.Second
	DefaultMaxIdleConns       = 10
	DefaultIdleTimeoutSeconds = 90
	DefaultTLSTimeoutSeconds  = 10
	DefaultMaxResponseBytes   = 32 << 20
)

// Rate limiting constants.
const (
	DefaultRequestsPerSecond = 2
	DefaultBurstSize         = 4
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Config holds connection settings for the remote analysis service.
type Config struct {
	// Service location; paths are joined onto BaseURL.
	BaseURL       string `json:"base_url" validate:"required,url"`
	HealthPath    string `json:"health_path" validate:"required,startswith=/"`
	AnalyzePath   string `json:"analyze_path" validate:"required,startswith=/"`
	ModelInfoPath string `json:"model_info_path" validate:"required,startswith=/"`

	// AnalyzeTimeout bounds the POST /analyze call, including any rate limit wait.
	AnalyzeTimeout time.Duration `json:"analyze_timeout" validate:"gt=0"`

	// HealthTimeout bounds the liveness probe and model info lookups,
	// including any rate limit wait.
	HealthTimeout time.Duration `json:"health_timeout" validate:"gt=0"`

	// MaxResponseBytes caps how much of a response body is read.
	MaxResponseBytes int64 `json:"max_response_bytes" validate:"gt=0"`

	// Headers are added to every outbound request.
	Headers map[string]string `json:"headers"`

	// HTTPClient overrides the pooled default client.
	HTTPClient *http.Client `json:"-"`

	RateLimit RateLimitConfig `json:"rate_limit"`
}

// RateLimitConfig bounds outbound request rate with an in-memory token bucket.
type RateLimitConfig struct {
	Enabled           bool    `json:"enabled"`
	RequestsPerSecond float64 `json:"requests_per_second" validate:"gte=0"`
	BurstSize         int     `json:"burst_size" validate:"gte=0"`
}

// DefaultConfig returns the configuration for a locally hosted analysis service.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          DefaultBaseURL,
		HealthPath:       DefaultHealthPath,
		AnalyzePath:      DefaultAnalyzePath,
		ModelInfoPath:    DefaultModelInfoPath,
		AnalyzeTimeout:   DefaultAnalyzeTimeout,
		HealthTimeout:    DefaultHealthTimeout,
		MaxResponseBytes: DefaultMaxResponseBytes,
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: DefaultRequestsPerSecond,
			BurstSize:         DefaultBurstSize,
		},
	}
}

// Validate checks that the configuration can reach a service.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid analysis config: %w", err)
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstSize < 1) {
		return fmt.Errorf("invalid analysis config: rate limit requires positive rate and burst")
	}
	return nil
}

func newDefaultHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          DefaultMaxIdleConns,
			IdleConnTimeout:       DefaultIdleTimeoutSeconds * time.Second,
			TLSHandshakeTimeout:   DefaultTLSTimeoutSeconds * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}
