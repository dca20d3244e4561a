package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scancine.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return path
}

// TestLoad tests parsing a full config file.
func TestLoad(t *testing.T) {
	path := writeConfig(t, `
endpoint_url: http://localhost:9090/diagnose
store_path: /var/lib/scancine/records.db
decode_timeout_ms: 10000
frame_delay_ms: 100
capture_fps: 24
mime_preferences: [video/webm, video/avi]
allow_mixed_batches: true
volumetric_modalities: [MR, CT]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.EndpointURL != "http://localhost:9090/diagnose" {
		t.Errorf("Unexpected endpoint: %q", cfg.EndpointURL)
	}
	if cfg.DecodeTimeout() != 10*time.Second {
		t.Errorf("Expected 10s decode timeout, got %v", cfg.DecodeTimeout())
	}
	if cfg.FrameDelay() != 100*time.Millisecond {
		t.Errorf("Expected 100ms frame delay, got %v", cfg.FrameDelay())
	}
	if cfg.CaptureFPS != 24 {
		t.Errorf("Expected 24 fps, got %d", cfg.CaptureFPS)
	}
	if len(cfg.MimePreferences) != 2 || cfg.MimePreferences[0] != "video/webm" {
		t.Errorf("Unexpected mime preferences: %v", cfg.MimePreferences)
	}
	if !cfg.AllowMixedBatches {
		t.Error("allow_mixed_batches should be true")
	}
	// Unset fields pick up defaults.
	if cfg.SettleDelay() != 800*time.Millisecond {
		t.Errorf("Expected default settle delay, got %v", cfg.SettleDelay())
	}
	if cfg.BitrateKbps != 2500 {
		t.Errorf("Expected default bitrate, got %d", cfg.BitrateKbps)
	}
}

// TestDefault tests the zero-file defaults.
func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.DecodeTimeout() != 5*time.Second {
		t.Errorf("Expected 5s decode timeout, got %v", cfg.DecodeTimeout())
	}
	if cfg.CaptureFPS != 30 {
		t.Errorf("Expected 30 fps, got %d", cfg.CaptureFPS)
	}
	if len(cfg.MimePreferences) != 3 || cfg.MimePreferences[0] != "video/mp4" {
		t.Errorf("Unexpected default mime preferences: %v", cfg.MimePreferences)
	}
	if cfg.AllowMixedBatches {
		t.Error("Mixed batches should be rejected by default")
	}
}

// TestLoad_Invalid tests validation failures.
func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "bad_container", content: "mime_preferences: [video/ogg]"},
		{name: "fps_too_high", content: "capture_fps: 500"},
		{name: "not_yaml", content: "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.content)); err == nil {
				t.Error("Expected error")
			}
		})
	}
}

// TestLoad_MissingFile tests that a missing path errors rather than
// silently falling back to defaults.
func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("Expected error for missing file")
	}
}
