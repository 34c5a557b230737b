package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes audit events to a NATS subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

// NewNATSSink connects to the NATS server at url and publishes to subject.
func NewNATSSink(url, subject string) (*NATSSink, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("NATS_URL is required")
	}
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("audit subject is required")
	}

	conn, err := nats.Connect(url, nats.Name("docverify-audit"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	return &NATSSink{conn: conn, subject: subject}, nil
}

// Record publishes the event; delivery is at-most-once.
func (s *NATSSink) Record(ctx context.Context, event string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := EncodeEvent(NewEvent(event, fields))
	if err != nil {
		return fmt.Errorf("encode audit event: %w", err)
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("nats publish subject=%s: %w", s.subject, err)
	}
	return nil
}

// Close drains the underlying connection.
func (s *NATSSink) Close() {
	if s.conn != nil {
		s.conn.Close()
	}
}

var _ Sink = (*NATSSink)(nil)
