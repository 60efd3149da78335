// Package activity hosts the Temporal activity that performs a radiograph
// analysis through the analysis client.
package activity

import (
	"context"
	"time"

	"github.com/ahrav/go-radiograph/internal/analysis"
	"github.com/ahrav/go-radiograph/internal/domain"
	"github.com/ahrav/go-radiograph/internal/workflow"
	base "github.com/ahrav/go-radiograph/pkg/activity"
	"github.com/ahrav/go-radiograph/pkg/events"
)

const eventSource = "analysis-activity"

// Activities holds dependencies for the analysis activity.
type Activities struct {
	base.BaseActivities
	client analysis.Client
}

// NewActivities creates Activities backed by client.
func NewActivities(b base.BaseActivities, client analysis.Client) *Activities {
	return &Activities{BaseActivities: b, client: client}
}

// AnalyzeRadiograph performs one analysis call.
// Every failure is returned as a non-retryable application error typed by
// its analysis kind.
func (a *Activities) AnalyzeRadiograph(ctx context.Context, req domain.AnalysisRequest) (*domain.AnalysisOutcome, error) {
	if err := req.Validate(); err != nil {
		return nil, nonRetryable(workflow.ValidationErrorType, err, "invalid analysis request")
	}

	wfCtx := a.GetWorkflowContext(ctx)
	a.RecordHeartbeat(ctx, "analyzing")
	base.SafeLog(ctx, "Analyzing radiograph",
		"run_id", req.RunID,
		"workflow_id", wfCtx.WorkflowID,
		"image_bytes", len(req.Image))

	outcome, err := a.client.Analyze(ctx, req.Image, req.Filename)
	if err != nil {
		kind, _ := analysis.KindOf(err)
		a.emit(ctx, workflow.EventAnalysisFailed, req.RunID, map[string]string{
			"kind":    string(kind),
			"message": err.Error(),
		})
		base.SafeLogError(ctx, "Radiograph analysis failed", "run_id", req.RunID, "error", err)
		return nil, toApplicationError(err)
	}

	a.emit(ctx, workflow.EventAnalysisCompleted, req.RunID, map[string]any{
		"diagnosis":       string(outcome.Diagnosis),
		"confidence":      outcome.Confidence,
		"processing_time": outcome.ProcessingTime,
	})
	return outcome, nil
}

func (a *Activities) emit(ctx context.Context, eventType, runID string, payload any) {
	env, err := events.NewEnvelope(eventType, eventSource, runID, time.Now(), payload)
	if err != nil {
		base.SafeLogError(ctx, "Failed to build event", "event_type", eventType, "error", err)
		return
	}
	a.EmitEventSafe(ctx, env, eventType)
}
