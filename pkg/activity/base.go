// Package activity provides shared infrastructure for Temporal activity
// implementations. It extracts execution context and wraps the side effects
// activities perform, such as logging and event emission, so they never fail
// the activity.
//
// Every helper works both inside a real activity and under plain unit tests,
// where the Temporal activity context is absent and its accessors panic.
package activity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"

	"github.com/ahrav/go-radiograph/pkg/events"
)

// WorkflowContext identifies the execution an activity runs under.
// Outside Temporal the fields hold placeholder values so callers can log
// and correlate without branching on the environment.
type WorkflowContext struct {
	WorkflowID string
	RunID      string
	ActivityID string
	Attempt    int32
}

// BaseActivities provides common infrastructure embedded by domain activity
// types. It owns the event sink and the recover wrappers around activity
// side effects.
type BaseActivities struct {
	eventSink events.EventSink
}

// NewBaseActivities creates a BaseActivities using sink for event emission.
// A nil sink disables emission, which suits tests that do not inspect events.
func NewBaseActivities(sink events.EventSink) BaseActivities {
	return BaseActivities{eventSink: sink}
}

// GetWorkflowContext extracts execution details from ctx.
// Outside a Temporal activity (activity.GetInfo panics) it returns
// placeholder identifiers so the same code runs under plain unit tests.
func (b *BaseActivities) GetWorkflowContext(ctx context.Context) WorkflowContext {
	var wfCtx WorkflowContext

	func() {
		defer func() {
			if r := recover(); r != nil {
				wfCtx = WorkflowContext{
					WorkflowID: "local",
					RunID:      "local-" + uuid.New().String()[:8],
					ActivityID: "local-activity",
					Attempt:    1,
				}
			}
		}()

		info := activity.GetInfo(ctx)
		wfCtx.WorkflowID = info.WorkflowExecution.ID
		wfCtx.RunID = info.WorkflowExecution.RunID
		wfCtx.ActivityID = info.ActivityID
		wfCtx.Attempt = info.Attempt
	}()

	return wfCtx
}

// EmitEventSafe appends envelope once and logs the result. Failures are
// logged and swallowed.
func (b *BaseActivities) EmitEventSafe(ctx context.Context, envelope events.Envelope, description string) {
	if b.eventSink == nil {
		return
	}
	if err := b.eventSink.Append(ctx, envelope); err != nil {
		SafeLogError(ctx, fmt.Sprintf("Failed to emit %s", description),
			"event_type", envelope.Type,
			"error", err)
		return
	}
	SafeLog(ctx, fmt.Sprintf("Event emitted: %s", description),
		"event_type", envelope.Type,
		"event_id", envelope.ID)
}

// RecordHeartbeat records a heartbeat when running inside an activity.
func (b *BaseActivities) RecordHeartbeat(ctx context.Context, details ...any) {
	RecordHeartbeat(ctx, details...)
}

// SafeLog logs at Info through the activity logger; a no-op outside an activity.
func SafeLog(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Info(msg, keyvals...)
}

// SafeLogError logs at Error through the activity logger; a no-op outside an activity.
func SafeLogError(ctx context.Context, msg string, keyvals ...any) {
	defer func() { _ = recover() }()
	activity.GetLogger(ctx).Error(msg, keyvals...)
}

// RecordHeartbeat records activity progress; a no-op outside an activity.
func RecordHeartbeat(ctx context.Context, details ...any) {
	defer func() { _ = recover() }()
	activity.RecordHeartbeat(ctx, details...)
}
