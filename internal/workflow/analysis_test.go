package workflow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/ahrav/go-radiograph/internal/domain"
)

func validAnalysisRequest() domain.AnalysisRequest {
	return domain.AnalysisRequest{
		RunID:    uuid.New().String(),
		Filename: "wrist.png",
		Image:    []byte{1, 2, 3},
	}
}

func TestAnalyzeRadiographWorkflow(t *testing.T) {
	testSuite := &testsuite.WorkflowTestSuite{}

	t.Run("returns the activity outcome", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		completed := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
		env.RegisterActivityWithOptions(
			func(_ context.Context, req domain.AnalysisRequest) (*domain.AnalysisOutcome, error) {
				assert.Equal(t, "wrist.png", req.Filename)
				return &domain.AnalysisOutcome{
					Diagnosis:      domain.DiagnosisFracture,
					Confidence:     0.87,
					ProcessingTime: 1.2,
					CompletedAt:    completed,
				}, nil
			},
			activity.RegisterOptions{Name: AnalyzeActivityName},
		)

		env.ExecuteWorkflow(AnalyzeRadiographWorkflow, validAnalysisRequest())
		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())

		var outcome domain.AnalysisOutcome
		require.NoError(t, env.GetWorkflowResult(&outcome))
		assert.Equal(t, domain.DiagnosisFracture, outcome.Diagnosis)
		assert.InDelta(t, 0.87, outcome.Confidence, 1e-9)
		assert.InDelta(t, 1.2, outcome.ProcessingTime, 1e-9)
		assert.True(t, completed.Equal(outcome.CompletedAt))
	})

	t.Run("invalid request fails validation", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.ExecuteWorkflow(AnalyzeRadiographWorkflow, domain.AnalysisRequest{})
		require.True(t, env.IsWorkflowCompleted())

		var appErr *temporal.ApplicationError
		require.ErrorAs(t, env.GetWorkflowError(), &appErr)
		assert.Equal(t, ValidationErrorType, appErr.Type())
		assert.True(t, appErr.NonRetryable())
	})

	t.Run("failure kind survives the activity boundary", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		env.RegisterActivityWithOptions(
			func(context.Context, domain.AnalysisRequest) (*domain.AnalysisOutcome, error) {
				return nil, temporal.NewNonRetryableApplicationError(
					"analysis service is not available", "service_unavailable", nil)
			},
			activity.RegisterOptions{Name: AnalyzeActivityName},
		)

		env.ExecuteWorkflow(AnalyzeRadiographWorkflow, validAnalysisRequest())
		require.True(t, env.IsWorkflowCompleted())

		var appErr *temporal.ApplicationError
		require.ErrorAs(t, env.GetWorkflowError(), &appErr)
		assert.Equal(t, "service_unavailable", appErr.Type())
	})

	t.Run("activity runs exactly once on retryable failure", func(t *testing.T) {
		env := testSuite.NewTestWorkflowEnvironment()
		var calls atomic.Int32
		env.RegisterActivityWithOptions(
			func(context.Context, domain.AnalysisRequest) (*domain.AnalysisOutcome, error) {
				calls.Add(1)
				return nil, errors.New("connection reset")
			},
			activity.RegisterOptions{Name: AnalyzeActivityName},
		)

		env.ExecuteWorkflow(AnalyzeRadiographWorkflow, validAnalysisRequest())
		require.True(t, env.IsWorkflowCompleted())
		require.Error(t, env.GetWorkflowError())
		assert.Equal(t, int32(1), calls.Load())
	})
}
