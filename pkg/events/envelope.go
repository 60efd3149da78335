// Package events provides the event infrastructure used while a radiograph
// workflow runs. It defines the Envelope type that wraps each lifecycle
// event with routing and correlation metadata, and the EventSink interface
// that receives them.
//
// Events are observability only: a sink that fails or drops an event never
// changes the workflow outcome.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SchemaVersion is stamped on every envelope.
const SchemaVersion = "1.0.0"

// Envelope wraps a lifecycle event with consistent metadata so sinks can
// route and correlate it without knowing the payload shape.
//
// The envelope carries:
// - a unique ID per emission
// - the run ID tying events of one analysis together
// - a schema version for payload evolution
// - the payload itself as raw JSON.
type Envelope struct {
	// ID uniquely identifies this event instance.
	// Generated as a UUID for each event emission.
	ID string `json:"id"`

	// Type identifies the event for routing.
	// Examples: "workflow.stage_changed", "analysis.completed"
	Type string `json:"type"`

	// Source names the component that emitted the event.
	// Examples: "orchestrator", "analysis-activity"
	Source string `json:"source"`

	// Version is the payload schema version.
	// Set to SchemaVersion by NewEnvelope.
	Version string `json:"version"`

	// Timestamp records when the event was emitted.
	Timestamp time.Time `json:"timestamp"`

	// RunID correlates events belonging to one analysis run.
	// Empty for events emitted outside a run, such as the landing and intake transitions.
	RunID string `json:"run_id,omitempty"`

	// Payload holds the event-specific data as JSON.
	// Use Decode to unmarshal it into a concrete type.
	Payload json.RawMessage `json:"payload"`
}

// NewEnvelope marshals payload and stamps a fresh ID.
func NewEnvelope(eventType, source, runID string, at time.Time, payload any) (Envelope, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Envelope{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Version:   SchemaVersion,
		Timestamp: at,
		RunID:     runID,
		Payload:   raw,
	}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error { return json.Unmarshal(e.Payload, v) }

// EventSink receives events emitted by the orchestrator and the analysis
// activity. Implementations may log, buffer, or forward them.
//
// Append should return quickly. Callers treat errors as best effort and
// never fail their primary operation on them.
type EventSink interface {
	// Append adds an event to the sink.
	// An error means the event was not recorded; the caller logs it and moves on.
	Append(ctx context.Context, envelope Envelope) error
}

// NoOpEventSink discards every event.
// Used when event emission is disabled and in tests.
type NoOpEventSink struct{}

// Append implements EventSink.
func (n *NoOpEventSink) Append(_ context.Context, _ Envelope) error { return nil }

// NewNoOpEventSink creates a sink that discards events.
func NewNoOpEventSink() EventSink { return &NoOpEventSink{} }
