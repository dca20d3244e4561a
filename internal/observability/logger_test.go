package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Log output is not a JSON object: %v", err)
	}
	return entry
}

// TestLogger_EventFields tests that domain events carry their structured
// fields alongside the service context.
func TestLogger_EventFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewLogger("scancine", "test", &buf)

	log.FrameSkipped("im_001.dcm", errors.New("truncated pixel data"))

	entry := decodeEntry(t, &buf)
	if entry["service"] != "scancine" {
		t.Errorf("Expected service field, got %v", entry["service"])
	}
	if entry["file"] != "im_001.dcm" {
		t.Errorf("Expected file field, got %v", entry["file"])
	}
	if entry["level"] != "warn" {
		t.Errorf("Frame skips are warnings, got %v", entry["level"])
	}

	buf.Reset()
	log.DiagnosisReceived("rec-1", "completed")
	entry = decodeEntry(t, &buf)
	if entry["record_id"] != "rec-1" || entry["status"] != "completed" {
		t.Errorf("Expected record fields, got %v", entry)
	}
}
