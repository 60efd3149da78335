package analysis

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// LoggingMiddleware logs each request with a correlation ID and timing.
// Image payloads are never logged; only their encoded size is recorded.
func LoggingMiddleware(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "analysis_client")

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if req.RequestID == "" {
				req.RequestID = uuid.New().String()
			}
			start := time.Now()

			logger.DebugContext(ctx, "analysis request started",
				"request_id", req.RequestID,
				"op", string(req.Op),
				"method", req.Method,
				"path", req.Path,
				"body_bytes", len(req.Body),
			)

			resp, err := next.Handle(ctx, req)
			duration := time.Since(start)

			if err != nil {
				logger.ErrorContext(ctx, "analysis request error",
					"request_id", req.RequestID,
					"op", string(req.Op),
					"duration_ms", duration.Milliseconds(),
					"error", err.Error(),
				)
				return nil, err
			}

			level := slog.LevelInfo
			if !resp.OK() {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "analysis request completed",
				"request_id", req.RequestID,
				"op", string(req.Op),
				"status", resp.StatusCode,
				"duration_ms", duration.Milliseconds(),
				"response_bytes", len(resp.Body),
			)
			return resp, nil
		})
	}
}
