package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoggerUsesCanonicalKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, " riskd ", "test", slog.LevelInfo)
	logger.Info("decision evaluated", slog.Uint64("epoch", 7))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	for _, key := range []string{"timestamp", "severity", "message", "service", "env", "epoch"} {
		if _, ok := line[key]; !ok {
			t.Fatalf("expected key %q in %v", key, line)
		}
	}
	if line["severity"] != "INFO" || line["service"] != "riskd" {
		t.Fatalf("unexpected log line %v", line)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "riskd", "", parseLevel("warn"))
	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %s", buf.String())
	}
	logger.Warn("kept")
	if buf.Len() == 0 {
		t.Fatalf("expected warn to be written")
	}
}

func TestSetupWithOptionsWritesRotatedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "riskd.log")
	logger, closer := SetupWithOptions("riskd", "test", Options{File: path, MaxSizeMB: 1})
	logger.Info("hello")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte(`"message":"hello"`)) {
		t.Fatalf("unexpected log file contents %s", data)
	}
}

func TestMaskMap(t *testing.T) {
	masked := MaskMap(map[string]string{"listen": ":7085", "jwt_secret": "hunter2", "dsn": ""})
	if masked["listen"] != ":7085" {
		t.Fatalf("listen should not be masked: %v", masked)
	}
	if masked["jwt_secret"] != RedactedValue {
		t.Fatalf("secret should be masked: %v", masked)
	}
	if masked["dsn"] != "" {
		t.Fatalf("empty values stay empty: %v", masked)
	}
}

func TestMaskField(t *testing.T) {
	if attr := MaskField("asset", "0xusdc"); attr.Value.String() != "0xusdc" {
		t.Fatalf("asset should not be masked: %v", attr)
	}
	if attr := MaskField("jwt_secret", "hunter2"); attr.Value.String() != RedactedValue {
		t.Fatalf("secret should be masked: %v", attr)
	}
	if attr := MaskField("dsn", ""); attr.Value.String() != "" {
		t.Fatalf("empty values stay empty: %v", attr)
	}
	if MaskValue("hunter2") != RedactedValue || MaskValue(" ") != " " {
		t.Fatalf("unexpected MaskValue behaviour")
	}
}
