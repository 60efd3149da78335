package activity

import (
	"errors"

	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-radiograph/internal/analysis"
	"github.com/ahrav/go-radiograph/internal/domain"
	"github.com/ahrav/go-radiograph/internal/workflow"
)

// ErrorTypeInternal tags failures outside the analysis taxonomy.
// Analysis client failures use the analysis.Kind string as their type and
// malformed input uses workflow.ValidationErrorType.
const ErrorTypeInternal = "internal"

// nonRetryable wraps cause as a Temporal non-retryable application error.
// Nothing in the analysis path is retried automatically.
func nonRetryable(errType string, cause error, msg string, details ...any) error {
	return temporal.NewNonRetryableApplicationError(msg, errType, cause, details...)
}

// toApplicationError maps a client failure onto an application error whose
// type is the failure kind. The status code and message travel as details so
// the caller can rebuild the original *analysis.Error.
func toApplicationError(err error) error {
	var aerr *analysis.Error
	if errors.As(err, &aerr) {
		return nonRetryable(string(aerr.Kind), err, aerr.Message, aerr.StatusCode, aerr.Message)
	}
	if errors.Is(err, domain.ErrInvalidSubmission) {
		return nonRetryable(workflow.ValidationErrorType, err, "invalid analysis request")
	}
	return nonRetryable(ErrorTypeInternal, err, "analysis failed")
}
