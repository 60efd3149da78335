package analysis

import (
	"errors"
	"fmt"
)

// Kind categorizes analysis client failures.
// Every failure is terminal for the current attempt; nothing here is retried automatically.
type Kind string

const (
	// KindServiceUnavailable indicates the liveness probe failed and no analysis was attempted.
	KindServiceUnavailable Kind = "service_unavailable"

	// KindRequestFailed indicates the service was reachable but rejected the request (4xx/5xx).
	KindRequestFailed Kind = "request_failed"

	// KindTransport indicates a network-level failure, timeout, or malformed response.
	KindTransport Kind = "transport_error"
)

// Sentinels matched by errors.Is against any *Error of the same kind.
var (
	// ErrServiceUnavailable matches failures of kind KindServiceUnavailable.
	ErrServiceUnavailable = errors.New("analysis service unavailable")

	// ErrRequestFailed matches failures of kind KindRequestFailed.
	ErrRequestFailed = errors.New("analysis request failed")

	// ErrTransport matches failures of kind KindTransport.
	ErrTransport = errors.New("analysis transport error")
)

// Error is the uniform failure returned by the analysis client.
// Low-level causes (DNS, resets, decode failures) are attached, never returned bare.
type Error struct {
	Kind       Kind   `json:"kind"`
	Op         Op     `json:"op"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
	Cause      error  `json:"-"`
}

// Error returns a human-readable description suitable for a failure view.
func (e *Error) Error() string {
	switch {
	case e.Kind == KindRequestFailed:
		return fmt.Sprintf("analysis request failed: %d - %s", e.StatusCode, e.Message)
	case e.Cause != nil:
		return fmt.Sprintf("[%s] %s: %s: %v", e.Kind, e.Op, e.Message, e.Cause)
	default:
		return fmt.Sprintf("[%s] %s: %s", e.Kind, e.Op, e.Message)
	}
}

// Unwrap returns the underlying cause for errors.Is/As traversal.
func (e *Error) Unwrap() error { return e.Cause }

// Is matches the kind sentinels.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrServiceUnavailable:
		return e.Kind == KindServiceUnavailable
	case ErrRequestFailed:
		return e.Kind == KindRequestFailed
	case ErrTransport:
		return e.Kind == KindTransport
	default:
		return false
	}
}

// KindOf extracts the failure kind from err.
func KindOf(err error) (Kind, bool) {
	var aerr *Error
	if errors.As(err, &aerr) {
		return aerr.Kind, true
	}
	return "", false
}

// IsKind reports whether err is an analysis failure of kind k.
func IsKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// ParseKind maps a serialized kind back to a Kind.
func ParseKind(s string) (Kind, bool) {
	switch k := Kind(s); k {
	case KindServiceUnavailable, KindRequestFailed, KindTransport:
		return k, true
	default:
		return "", false
	}
}

func transportError(op Op, msg string, cause error) *Error {
	return &Error{Kind: KindTransport, Op: op, Message: msg, Cause: cause}
}
