package analysis

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Op identifies the remote endpoint a request targets.
type Op string

const (
	// OpHealth is the liveness probe.
	OpHealth Op = "health"
	// OpAnalyze submits an image for classification.
	OpAnalyze Op = "analyze"
	// OpModelInfo describes the deployed model.
	OpModelInfo Op = "model_info"
)

// Request is a single call to the analysis service as it travels through
// the middleware pipeline.
type Request struct {
	// Op names the logical operation for logs and error attribution.
	Op Op

	// Method is the HTTP method, e.g. http.MethodPost.
	Method string

	// Path is joined onto the handler's base URL.
	Path string

	// Body is sent as-is with a JSON content type. Nil sends no body.
	Body []byte

	// Headers are set on the outbound request after the defaults.
	Headers map[string]string

	// Timeout bounds the call from the first middleware that honors it,
	// covering any rate limit wait and the full round trip. Zero means no
	// per-request bound beyond ctx.
	Timeout time.Duration

	// RequestID correlates log lines for this call.
	// Assigned by LoggingMiddleware when empty.
	RequestID string
}

// Response is the raw result of a call that reached the service.
// Non-2xx statuses are still responses; interpreting them is the caller's job.
type Response struct {
	// StatusCode is the HTTP status code, e.g. 200.
	StatusCode int

	// Status is the HTTP status line text, e.g. "200 OK".
	Status string

	// Header holds the response headers.
	Header http.Header

	// Body is the full response body. Bodies over the configured maximum
	// size fail the call instead.
	Body []byte

	// Latency measures from sending the request to reading the last body byte.
	Latency time.Duration
}

// OK reports whether the status is in the 2xx range.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Handler processes analysis service requests through a composable middleware pipeline.
type Handler interface {
	Handle(ctx context.Context, req *Request) (*Response, error)
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(context.Context, *Request) (*Response, error)

// Handle implements the Handler interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// Middleware transforms a Handler into an enhanced Handler.
type Middleware func(Handler) Handler

// Chain builds a middleware pipeline around a core handler.
// The first middleware is outermost.
func Chain(h Handler, middlewares ...Middleware) Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		h = middlewares[i](h)
	}
	return h
}

// NewHTTPHandler creates the core handler that performs HTTP round trips against baseURL.
func NewHTTPHandler(client *http.Client, baseURL string, maxBody int64) Handler {
	return &httpHandler{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		maxBody: maxBody,
	}
}

type httpHandler struct {
	client  *http.Client
	baseURL string
	maxBody int64
}

// Handle performs the round trip and reads the full body before the
// per-request timeout is released. An outer deadline set by the rate
// limiter for the same timeout always fires first.
func (h *httpHandler) Handle(ctx context.Context, req *Request) (*Response, error) {
	reqCtx := ctx
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(reqCtx, req.Method, h.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	httpResp, err := h.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	limit := h.maxBody
	if limit <= 0 {
		limit = DefaultMaxResponseBytes
	}
	data, err := io.ReadAll(io.LimitReader(httpResp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("response body exceeds %d bytes", limit)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Status:     httpResp.Status,
		Header:     httpResp.Header,
		Body:       data,
		Latency:    time.Since(start),
	}, nil
}
