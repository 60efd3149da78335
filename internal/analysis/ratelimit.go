package analysis

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// RateLimitMiddleware throttles outbound requests with a local token bucket.
// A request waits for a token until its context ends; it is never rejected outright.
//
// The request's Timeout starts before the wait, so time spent queued for a
// token counts against the same per-request budget as the round trip.
func RateLimitMiddleware(cfg RateLimitConfig) (Middleware, error) {
	if cfg.RequestsPerSecond <= 0 {
		return nil, fmt.Errorf("requests per second must be positive, got %v", cfg.RequestsPerSecond)
	}
	if cfg.BurstSize < 1 {
		return nil, fmt.Errorf("burst size must be at least 1, got %d", cfg.BurstSize)
	}
	limiter := rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.BurstSize)

	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
			if req.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, req.Timeout)
				defer cancel()
			}
			if err := limiter.Wait(ctx); err != nil {
				// Wait fails early, with ctx still live, when no token can arrive before the deadline.
				if ctx.Err() == nil {
					err = fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
				}
				return nil, fmt.Errorf("rate limit wait for %s: %w", req.Op, err)
			}
			return next.Handle(ctx, req)
		})
	}, nil
}
