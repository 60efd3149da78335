// Package analysis implements the client for the remote fracture-analysis service.
//
// Every analysis is preceded by a liveness probe; a failed probe short-circuits
// before the image is sent. Requests pass through a middleware chain
// (logging, local rate limiting) around the core HTTP handler. Responses are
// never cached and failures are never retried: each call is a fresh attempt
// whose outcome is either a validated domain.AnalysisOutcome or an *Error.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/ahrav/go-radiograph/internal/domain"
)

// Client talks to the remote analysis service.
type Client interface {
	// CheckAvailability probes liveness. It never returns an error; any failure means unavailable.
	CheckAvailability(ctx context.Context) bool

	// Analyze submits one image and returns the parsed outcome.
	Analyze(ctx context.Context, image []byte, filename string) (*domain.AnalysisOutcome, error)

	// ModelInfo describes the deployed model.
	ModelInfo(ctx context.Context) (*ModelInfo, error)
}

type client struct {
	cfg     Config
	handler Handler
	logger  *slog.Logger
	now     func() time.Time
}

// NewClient creates a client with the logging and rate-limit middleware installed.
func NewClient(cfg *Config, logger *slog.Logger) (Client, error) {
	return newClient(cfg, logger)
}

func newClient(cfg *Config, logger *slog.Logger) (*client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = newDefaultHTTPClient()
	}

	core := NewHTTPHandler(httpClient, cfg.BaseURL, cfg.MaxResponseBytes)
	middlewares := []Middleware{LoggingMiddleware(logger)}
	if cfg.RateLimit.Enabled {
		rl, err := RateLimitMiddleware(cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to create rate limit middleware: %w", err)
		}
		middlewares = append(middlewares, rl)
	}

	return &client{
		cfg:     *cfg,
		handler: Chain(core, middlewares...),
		logger:  logger.With("system", "analysis"),
		now:     time.Now,
	}, nil
}

func (c *client) CheckAvailability(ctx context.Context) bool {
	resp, err := c.handler.Handle(ctx, &Request{
		Op:      OpHealth,
		Method:  http.MethodGet,
		Path:    c.cfg.HealthPath,
		Headers: c.cfg.Headers,
		Timeout: c.cfg.HealthTimeout,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "liveness probe failed", "error", err)
		return false
	}
	return resp.StatusCode == http.StatusOK
}

func (c *client) Analyze(ctx context.Context, image []byte, filename string) (*domain.AnalysisOutcome, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: image is empty", domain.ErrInvalidSubmission)
	}
	start := c.now()

	if !c.CheckAvailability(ctx) {
		return nil, &Error{
			Kind:    KindServiceUnavailable,
			Op:      OpAnalyze,
			Message: "analysis service is not available; ensure the model server is running",
		}
	}

	body, err := json.Marshal(analyzeRequest{
		Image:       encodeImage(image),
		Filename:    filename,
		PatientData: map[string]any{},
	})
	if err != nil {
		return nil, transportError(OpAnalyze, "failed to encode request", err)
	}

	resp, err := c.handler.Handle(ctx, &Request{
		Op:      OpAnalyze,
		Method:  http.MethodPost,
		Path:    c.cfg.AnalyzePath,
		Body:    body,
		Headers: c.cfg.Headers,
		Timeout: c.cfg.AnalyzeTimeout,
	})
	if err != nil {
		return nil, transportError(OpAnalyze, roundTripMessage(err), err)
	}
	if !resp.OK() {
		return nil, &Error{
			Kind:       KindRequestFailed,
			Op:         OpAnalyze,
			StatusCode: resp.StatusCode,
			Message:    failureMessage(resp),
		}
	}

	return c.parseOutcome(resp, start)
}

func (c *client) parseOutcome(resp *Response, start time.Time) (*domain.AnalysisOutcome, error) {
	var body analyzeResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, transportError(OpAnalyze, "malformed response body", err)
	}

	diagnosis, err := domain.ParseDiagnosis(body.Prediction)
	if err != nil {
		return nil, transportError(OpAnalyze, "unrecognized prediction", err)
	}
	if body.Confidence == nil {
		return nil, transportError(OpAnalyze, "response is missing confidence", nil)
	}

	receivedAt := c.now()
	processing := receivedAt.Sub(start).Seconds()
	if body.ProcessingTime != nil {
		processing = *body.ProcessingTime
	}

	outcome, err := domain.NewAnalysisOutcome(domain.AnalysisOutcome{
		Diagnosis:       diagnosis,
		Confidence:      *body.Confidence,
		AttentionMapURL: attentionMapURL(body.GradcamImage),
		ProcessingTime:  processing,
		CompletedAt:     receivedAt.UTC(),
		GroundTruth:     body.GroundTruth,
		Correct:         body.Correct,
		PatientMeta:     body.PatientMeta,
	})
	if err != nil {
		return nil, transportError(OpAnalyze, "response violates outcome constraints", err)
	}
	return outcome, nil
}

func (c *client) ModelInfo(ctx context.Context) (*ModelInfo, error) {
	resp, err := c.handler.Handle(ctx, &Request{
		Op:      OpModelInfo,
		Method:  http.MethodGet,
		Path:    c.cfg.ModelInfoPath,
		Headers: c.cfg.Headers,
		Timeout: c.cfg.HealthTimeout,
	})
	if err != nil {
		return nil, transportError(OpModelInfo, roundTripMessage(err), err)
	}
	if !resp.OK() {
		return nil, &Error{
			Kind:       KindRequestFailed,
			Op:         OpModelInfo,
			StatusCode: resp.StatusCode,
			Message:    failureMessage(resp),
		}
	}

	var info ModelInfo
	if err := json.Unmarshal(resp.Body, &info); err != nil {
		return nil, transportError(OpModelInfo, "malformed response body", err)
	}
	return &info, nil
}

func roundTripMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "request canceled"
	case errors.Is(err, context.DeadlineExceeded):
		return "request timed out"
	default:
		return "request did not complete"
	}
}
