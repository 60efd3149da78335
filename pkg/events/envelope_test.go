package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEnvelope(t *testing.T) {
	at := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	env, err := NewEnvelope("workflow.stage_changed", "orchestrator", "run-1", at,
		map[string]string{"from": "intake", "to": "analyzing"})
	require.NoError(t, err)

	assert.Len(t, env.ID, 36)
	assert.Equal(t, SchemaVersion, env.Version)
	assert.Equal(t, at, env.Timestamp)
	assert.Equal(t, "run-1", env.RunID)

	var payload map[string]string
	require.NoError(t, env.Decode(&payload))
	assert.Equal(t, "analyzing", payload["to"])
}

func TestNewEnvelope_UnmarshalablePayload(t *testing.T) {
	_, err := NewEnvelope("x", "y", "", time.Now(), make(chan int))
	assert.Error(t, err)
}

func TestLogSink_Append(t *testing.T) {
	tests := []struct {
		name    string
		payload json.RawMessage
		want    any
	}{
		{
			name:    "object payload is logged as structured fields",
			payload: json.RawMessage(`{"from":"intake","to":"analyzing"}`),
			want:    map[string]any{"from": "intake", "to": "analyzing"},
		},
		{
			name:    "non-object payload is logged as raw text",
			payload: json.RawMessage(`"started"`),
			want:    `"started"`,
		},
		{
			name:    "malformed payload is logged as raw text",
			payload: json.RawMessage(`{broken`),
			want:    `{broken`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			sink := NewLogSink(slog.New(slog.NewJSONHandler(&buf, nil)))

			err := sink.Append(context.Background(), Envelope{
				ID:      "evt-1",
				Type:    "workflow.stage_changed",
				Source:  "orchestrator",
				RunID:   "run-1",
				Payload: tt.payload,
			})
			require.NoError(t, err)

			var record map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
			assert.Equal(t, "event", record["msg"])
			assert.Equal(t, "events", record["system"])
			assert.Equal(t, "workflow.stage_changed", record["event_type"])
			assert.Equal(t, "run-1", record["run_id"])
			assert.Equal(t, tt.want, record["payload"])
		})
	}
}

func TestNoOpEventSink(t *testing.T) {
	assert.NoError(t, NewNoOpEventSink().Append(context.Background(), Envelope{Type: "x"}))
}
