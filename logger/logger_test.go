package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestConfigureInvalidFormat(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("info", "xml", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestConfigureFileOutput(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	path := filepath.Join(t.TempDir(), "upload.log")
	if err := log.Configure("debug", "text", path, 7); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	log.WithComponent("test").Info("hello")
}

func TestJSONFieldNames(t *testing.T) {
	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithComponent("reader").WithFields(Fields{"rows": 3}).Info("read prices")

	var out map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal log line: %v (%s)", err, buf.String())
	}
	if out["message"] != "read prices" {
		t.Errorf("unexpected message: %v", out["message"])
	}
	if out["component"] != "reader" {
		t.Errorf("unexpected component: %v", out["component"])
	}
	if _, ok := out["timestamp"]; !ok {
		t.Errorf("timestamp key missing: %v", out)
	}
}

func TestCounts(t *testing.T) {
	ResetCounts()
	t.Cleanup(ResetCounts)

	log := Logger()
	var buf bytes.Buffer
	log.SetOutput(&buf)

	log.WithComponent("uploader").Warn("backpressure")
	log.WithComponent("uploader").Warn("backpressure")
	log.WithComponent("pricing").Error("boom")

	counts := Counts()
	if len(counts) != 2 {
		t.Fatalf("expected 2 components, got %v", counts)
	}
	if counts[0].Component != "pricing" || counts[0].Errors != 1 {
		t.Errorf("unexpected pricing count: %+v", counts[0])
	}
	if counts[1].Component != "uploader" || counts[1].Warnings != 2 {
		t.Errorf("unexpected uploader count: %+v", counts[1])
	}
}
