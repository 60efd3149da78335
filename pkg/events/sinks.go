package events

import (
	"context"
	"log/slog"
	"slices"
	"sync"
)

// LogSink writes each event as a structured log record.
type LogSink struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogSink returns a sink logging at Info level. A nil logger uses slog.Default.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger.With("system", "events"), level: slog.LevelInfo}
}

// Append implements EventSink. Object payloads are logged as structured
// values; anything else is logged as raw JSON text.
func (s *LogSink) Append(ctx context.Context, e Envelope) error {
	var payload any = string(e.Payload)
	var fields map[string]any
	if err := e.Decode(&fields); err == nil && fields != nil {
		payload = fields
	}
	s.logger.Log(ctx, s.level, "event",
		"event_id", e.ID,
		"event_type", e.Type,
		"source", e.Source,
		"run_id", e.RunID,
		"payload", payload,
	)
	return nil
}

// MemorySink retains events in order. Safe for concurrent use.
type MemorySink struct {
	mu     sync.Mutex
	events []Envelope
}

// NewMemorySink creates an empty in-memory sink.
func NewMemorySink() *MemorySink { return &MemorySink{} }

// Append implements EventSink.
func (s *MemorySink) Append(_ context.Context, e Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

// Events returns a copy of everything appended so far.
func (s *MemorySink) Events() []Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.events)
}

// Types returns the event types in append order.
func (s *MemorySink) Types() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]string, len(s.events))
	for i, e := range s.events {
		types[i] = e.Type
	}
	return types
}
