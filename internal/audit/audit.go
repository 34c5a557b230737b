// Package audit emits best-effort action events to an external sink.
// Records are fire-and-forget: a sink failure is logged and never
// propagated to the operation that produced the event.
package audit

import (
	"context"
	"encoding/json"
	"time"
)

// Sink delivers audit events to a backend.
type Sink interface {
	Record(ctx context.Context, event string, fields map[string]any) error
}

// Event is the payload delivered to audit backends.
type Event struct {
	Action    string         `json:"action"`
	Fields    map[string]any `json:"fields,omitempty"`
	Timestamp string         `json:"timestamp"`
}

// NewEvent builds an event stamped with the current UTC time.
func NewEvent(action string, fields map[string]any) Event {
	return Event{
		Action:    action,
		Fields:    fields,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

// EncodeEvent returns the JSON representation of an event.
func EncodeEvent(ev Event) ([]byte, error) {
	return json.Marshal(ev)
}

// DecodeEvent parses a JSON payload into an Event.
func DecodeEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
