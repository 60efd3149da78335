package workflow

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ahrav/go-radiograph/internal/domain"
)

// Temporal registration names and defaults.
const (
	// TaskQueue is the default queue the analysis worker polls.
	TaskQueue = "radiograph-analysis"

	// AnalyzeActivityName is the registered name of the analysis activity.
	AnalyzeActivityName = "AnalyzeRadiograph"

	// AnalyzeActivityTimeout covers the liveness probe plus the 30s analysis call.
	AnalyzeActivityTimeout = 45 * time.Second
)

// ValidationErrorType is the application error type for a malformed analysis
// request, whether the workflow or the activity rejects it.
const ValidationErrorType = "validation"

// AnalyzeRadiographWorkflow runs one analysis as a single activity attempt.
// Failures are never retried; the operator restarts the workflow instead.
func AnalyzeRadiographWorkflow(ctx workflow.Context, req domain.AnalysisRequest) (*domain.AnalysisOutcome, error) {
	const currentVersion = 1
	_ = workflow.GetVersion(ctx, "analyze-radiograph.v", workflow.DefaultVersion, currentVersion)

	if err := req.Validate(); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"invalid analysis request",
			ValidationErrorType,
			err,
		)
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: AnalyzeActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	workflow.GetLogger(ctx).Info("starting radiograph analysis",
		"run_id", req.RunID,
		"filename", req.Filename,
		"image_bytes", len(req.Image),
	)

	var outcome domain.AnalysisOutcome
	if err := workflow.ExecuteActivity(ctx, AnalyzeActivityName, req).Get(ctx, &outcome); err != nil {
		return nil, err
	}
	return &outcome, nil
}
