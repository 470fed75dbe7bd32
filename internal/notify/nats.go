package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// Subjects for published notifications.
const (
	SubjectError = "vidar.notifications.error"
	SubjectInfo  = "vidar.notifications.info"
)

// notification is the wire payload published to NATS.
type notification struct {
	Level   string    `json:"level"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NATSSink publishes notifications to NATS subjects for the
// presentation layer to consume. Publish failures are logged and
// swallowed; notification delivery never fails the edit flow.
type NATSSink struct {
	conn   *nats.Conn
	logger *slog.Logger
}

// NewNATSSink creates a NATS-backed notification sink.
func NewNATSSink(conn *nats.Conn, logger *slog.Logger) *NATSSink {
	return &NATSSink{conn: conn, logger: logger}
}

func (s *NATSSink) Error(ctx context.Context, message string) {
	s.publish(SubjectError, "error", message)
}

func (s *NATSSink) Info(ctx context.Context, message string) {
	s.publish(SubjectInfo, "info", message)
}

func (s *NATSSink) publish(subject, level, message string) {
	payload, err := json.Marshal(notification{
		Level:   level,
		Message: message,
		At:      time.Now().UTC(),
	})
	if err != nil {
		s.logger.Error("failed to encode notification", "error", err)
		return
	}
	if err := s.conn.Publish(subject, payload); err != nil {
		s.logger.Error("failed to publish notification", "subject", subject, "error", err)
	}
}
