// Package worker wires the analysis workflow and activity into a Temporal
// worker, and provides the Temporal-backed Analyzer used by the orchestrator
// when durable execution is enabled.
package worker

import (
	sdkactivity "go.temporal.io/sdk/activity"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ahrav/go-radiograph/internal/activity"
	"github.com/ahrav/go-radiograph/internal/analysis"
	"github.com/ahrav/go-radiograph/internal/workflow"
	base "github.com/ahrav/go-radiograph/pkg/activity"
	"github.com/ahrav/go-radiograph/pkg/events"
)

// Registrar is the subset of a Temporal worker used for registration.
type Registrar interface {
	RegisterWorkflow(w any)
	RegisterActivityWithOptions(a any, options sdkactivity.RegisterOptions)
}

var _ Registrar = sdkworker.Worker(nil)

// RegisterAll registers the analysis workflow and activity. Call once during
// worker startup, before Start. A nil sink disables activity events.
func RegisterAll(w Registrar, client analysis.Client, sink events.EventSink) {
	if sink == nil {
		sink = events.NewNoOpEventSink()
	}
	acts := activity.NewActivities(base.NewBaseActivities(sink), client)

	w.RegisterWorkflow(workflow.AnalyzeRadiographWorkflow)
	w.RegisterActivityWithOptions(acts.AnalyzeRadiograph, sdkactivity.RegisterOptions{
		Name: workflow.AnalyzeActivityName,
	})
}
