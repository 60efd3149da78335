package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"

	"github.com/ahrav/go-radiograph/internal/analysis"
	"github.com/ahrav/go-radiograph/internal/domain"
	"github.com/ahrav/go-radiograph/internal/workflow"
)

// WorkflowStarter is the subset of client.Client used to run an analysis workflow.
type WorkflowStarter interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
}

// TemporalAnalyzer satisfies workflow.Analyzer by running each analysis as
// an AnalyzeRadiographWorkflow execution.
type TemporalAnalyzer struct {
	starter   WorkflowStarter
	taskQueue string
	timeout   time.Duration
	logger    *slog.Logger
}

var _ workflow.Analyzer = (*TemporalAnalyzer)(nil)

// NewTemporalAnalyzer creates an analyzer dispatching to taskQueue.
// Empty taskQueue selects workflow.TaskQueue; zero timeout selects
// workflow.AnalyzeActivityTimeout plus scheduling slack.
func NewTemporalAnalyzer(starter WorkflowStarter, taskQueue string, timeout time.Duration, logger *slog.Logger) *TemporalAnalyzer {
	if taskQueue == "" {
		taskQueue = workflow.TaskQueue
	}
	if timeout <= 0 {
		timeout = workflow.AnalyzeActivityTimeout + 15*time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TemporalAnalyzer{
		starter:   starter,
		taskQueue: taskQueue,
		timeout:   timeout,
		logger:    logger.With("system", "temporal_analyzer"),
	}
}

// Analyze starts the workflow and waits for its result. Failures come back
// as *analysis.Error with the kind recorded by the activity.
func (t *TemporalAnalyzer) Analyze(ctx context.Context, image []byte, filename string) (*domain.AnalysisOutcome, error) {
	req := domain.AnalysisRequest{
		RunID:    uuid.New().String(),
		Filename: filename,
		Image:    image,
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	workflowID := "radiograph-analysis-" + req.RunID
	run, err := t.starter.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:                       workflowID,
		TaskQueue:                t.taskQueue,
		WorkflowExecutionTimeout: t.timeout,
	}, workflow.AnalyzeRadiographWorkflow, req)
	if err != nil {
		return nil, &analysis.Error{
			Kind:    analysis.KindTransport,
			Op:      analysis.OpAnalyze,
			Message: "failed to start analysis workflow",
			Cause:   err,
		}
	}
	t.logger.InfoContext(ctx, "analysis workflow started", "workflow_id", workflowID, "task_queue", t.taskQueue)

	var outcome domain.AnalysisOutcome
	if err := run.Get(ctx, &outcome); err != nil {
		return nil, fromWorkflowError(err)
	}
	return &outcome, nil
}

// fromWorkflowError rebuilds the analysis failure carried by an application error.
func fromWorkflowError(err error) error {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) {
		if kind, ok := analysis.ParseKind(appErr.Type()); ok {
			aerr := &analysis.Error{Kind: kind, Op: analysis.OpAnalyze, Cause: err}
			var (
				status int
				msg    string
			)
			if appErr.HasDetails() && appErr.Details(&status, &msg) == nil {
				aerr.StatusCode = status
				aerr.Message = msg
			}
			if aerr.Message == "" {
				aerr.Message = fmt.Sprintf("analysis workflow failed: %s", kind)
			}
			return aerr
		}
	}

	msg := "analysis workflow did not complete"
	var timeoutErr *temporal.TimeoutError
	if errors.As(err, &timeoutErr) || errors.Is(err, context.DeadlineExceeded) {
		msg = "request timed out"
	}
	return &analysis.Error{Kind: analysis.KindTransport, Op: analysis.OpAnalyze, Message: msg, Cause: err}
}
