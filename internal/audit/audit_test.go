package audit

import (
	"context"
	"testing"
)

func TestEventEncodeDecode(t *testing.T) {
	ev := NewEvent("DOCUMENT_UPLOAD", map[string]any{
		"doc_id":   "doc-1",
		"owner_id": "owner-1",
	})
	if ev.Timestamp == "" {
		t.Fatalf("expected timestamp to be stamped")
	}

	payload, err := EncodeEvent(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeEvent(payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Action != "DOCUMENT_UPLOAD" {
		t.Fatalf("unexpected action: %s", got.Action)
	}
	if got.Fields["doc_id"] != "doc-1" {
		t.Fatalf("unexpected doc_id: %v", got.Fields["doc_id"])
	}
}

func TestDecodeEventRejectsGarbage(t *testing.T) {
	if _, err := DecodeEvent([]byte("{not json")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLogSinkNeverFails(t *testing.T) {
	sink := LogSink{}
	if err := sink.Record(context.Background(), "ADMIN_VERIFICATION", map[string]any{"doc_id": "doc-2"}); err != nil {
		t.Fatalf("log sink returned error: %v", err)
	}
	if err := sink.Record(context.Background(), "UPLOAD_FAIL", nil); err != nil {
		t.Fatalf("log sink with nil fields returned error: %v", err)
	}
}
