// Package notify delivers operator-facing notifications emitted by the
// modification engine. Delivery is fire-and-forget: the engine never
// consumes a return value, so sinks must not block the edit flow.
package notify

import (
	"context"
	"log/slog"
)

// Sink receives human-readable notifications.
type Sink interface {
	// Error reports a failure message to the operator surface.
	Error(ctx context.Context, message string)

	// Info reports a confirmation message to the operator surface.
	Info(ctx context.Context, message string)
}

// LogSink writes notifications to a structured logger. The default sink
// for development and for deployments without a message broker.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a logger-backed sink.
func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Error(_ context.Context, message string) {
	s.logger.Error("notification", "message", message)
}

func (s *LogSink) Info(_ context.Context, message string) {
	s.logger.Info("notification", "message", message)
}
