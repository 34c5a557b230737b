package audit

import (
	"context"

	"docverify-backend/internal/shared/telemetry"
)

// LogSink writes audit events to the process log stream.
type LogSink struct{}

// Record emits the event as a structured log line.
func (LogSink) Record(ctx context.Context, event string, fields map[string]any) error {
	_ = ctx
	entry := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		entry[k] = v
	}
	entry["action"] = event
	telemetry.Info("audit", entry)
	return nil
}

var _ Sink = LogSink{}
