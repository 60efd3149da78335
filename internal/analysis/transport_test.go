package analysis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next Handler) Handler {
			return HandlerFunc(func(ctx context.Context, req *Request) (*Response, error) {
				order = append(order, name)
				return next.Handle(ctx, req)
			})
		}
	}
	core := HandlerFunc(func(context.Context, *Request) (*Response, error) {
		order = append(order, "core")
		return &Response{StatusCode: 200}, nil
	})

	_, err := Chain(core, mark("outer"), mark("inner")).Handle(context.Background(), &Request{})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner", "core"}, order)
}

func TestLoggingMiddleware_AssignsRequestID(t *testing.T) {
	var seen string
	core := HandlerFunc(func(_ context.Context, req *Request) (*Response, error) {
		seen = req.RequestID
		return &Response{StatusCode: 200}, nil
	})

	_, err := LoggingMiddleware(nil)(core).Handle(context.Background(), &Request{Op: OpHealth})
	require.NoError(t, err)
	assert.Len(t, seen, 36)
}

func TestRateLimitMiddleware(t *testing.T) {
	_, err := RateLimitMiddleware(RateLimitConfig{RequestsPerSecond: 0, BurstSize: 1})
	assert.Error(t, err)
	_, err = RateLimitMiddleware(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 0})
	assert.Error(t, err)

	mw, err := RateLimitMiddleware(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	require.NoError(t, err)

	calls := 0
	h := mw(HandlerFunc(func(context.Context, *Request) (*Response, error) {
		calls++
		return &Response{StatusCode: 200}, nil
	}))

	_, err = h.Handle(context.Background(), &Request{Op: OpAnalyze})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = h.Handle(ctx, &Request{Op: OpAnalyze})
	assert.Error(t, err, "second request must wait beyond the deadline")
	assert.Equal(t, 1, calls)
}

func TestRateLimitMiddleware_WaitCountsAgainstRequestTimeout(t *testing.T) {
	mw, err := RateLimitMiddleware(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})
	require.NoError(t, err)

	var deadlines []time.Time
	h := mw(HandlerFunc(func(ctx context.Context, _ *Request) (*Response, error) {
		d, _ := ctx.Deadline()
		deadlines = append(deadlines, d)
		return &Response{StatusCode: 200}, nil
	}))

	_, err = h.Handle(context.Background(), &Request{Op: OpAnalyze, Timeout: time.Minute})
	require.NoError(t, err)
	require.Len(t, deadlines, 1)
	assert.False(t, deadlines[0].IsZero(), "request timeout must bound the downstream context")

	start := time.Now()
	_, err = h.Handle(context.Background(), &Request{Op: OpAnalyze, Timeout: 50 * time.Millisecond})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.Len(t, deadlines, 1)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "missing_base_url", mutate: func(c *Config) { c.BaseURL = "" }, wantErr: true},
		{name: "relative_path", mutate: func(c *Config) { c.AnalyzePath = "analyze" }, wantErr: true},
		{name: "zero_timeout", mutate: func(c *Config) { c.AnalyzeTimeout = 0 }, wantErr: true},
		{name: "bad_rate_limit", mutate: func(c *Config) { c.RateLimit.BurstSize = 0 }, wantErr: true},
		{
			name: "rate_limit_disabled_ignores_zero_values",
			mutate: func(c *Config) {
				c.RateLimit = RateLimitConfig{Enabled: false}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestFailureMessage(t *testing.T) {
	resp := &Response{StatusCode: 599, Status: "599 Custom Reason", Body: []byte("x")}
	assert.Equal(t, "Custom Reason", failureMessage(resp))
}

func TestEncodeImage(t *testing.T) {
	assert.Equal(t, "AQID", encodeImage([]byte{1, 2, 3}))
	assert.Equal(t, "AQID", encodeImage([]byte("data:image/png;base64,AQID")))
}

func TestErrorKinds(t *testing.T) {
	err := &Error{Kind: KindTransport, Op: OpAnalyze, Message: "request timed out", Cause: context.DeadlineExceeded}
	assert.ErrorIs(t, err, ErrTransport)
	assert.NotErrorIs(t, err, ErrRequestFailed)
	assert.Equal(t, "[transport_error] analyze: request timed out: context deadline exceeded", err.Error())

	kind, ok := KindOf(err)
	assert.True(t, ok)
	assert.Equal(t, KindTransport, kind)

	k, ok := ParseKind("request_failed")
	assert.True(t, ok)
	assert.Equal(t, KindRequestFailed, k)
	_, ok = ParseKind("bogus")
	assert.False(t, ok)
}
