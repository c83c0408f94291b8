package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pixelwall/server/internal/config"
)

// logTo returns a log file path in a temp dir and a reader for it.
func logTo(t *testing.T) (string, func() string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	read := func() string {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}
	return path, read
}

func TestNewLogger_Plain(t *testing.T) {
	path, read := logTo(t)
	log, err := newLogger(config.LoggingConfig{Level: "info", Format: "plain", Output: path})
	if err != nil {
		t.Fatalf("newLogger() error: %v", err)
	}
	log.Debug("hidden")
	log.Info("frame shown")
	log.Sync()

	out := read()
	if strings.Contains(out, "\033[") {
		t.Errorf("plain log has escape codes: %q", out)
	}
	if !strings.Contains(out, "INFO") || !strings.Contains(out, "frame shown") {
		t.Errorf("log = %q, want INFO frame shown", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug entry written at info level")
	}
}

func TestNewLogger_Console(t *testing.T) {
	path, read := logTo(t)
	log, err := newLogger(config.LoggingConfig{Level: "debug", Format: "console", Output: path})
	if err != nil {
		t.Fatalf("newLogger() error: %v", err)
	}
	log.Debug("tick")
	log.Sync()
	if out := read(); !strings.Contains(out, "\033[") || !strings.Contains(out, "tick") {
		t.Errorf("console log = %q, want colored level", out)
	}
}

func TestNewLogger_JSON(t *testing.T) {
	path, read := logTo(t)
	log, err := newLogger(config.LoggingConfig{Level: "warn", Format: "json", Output: path})
	if err != nil {
		t.Fatalf("newLogger() error: %v", err)
	}
	log.Info("dropped")
	log.Warn("play range rejected")
	log.Sync()

	lines := strings.Split(strings.TrimSpace(read()), "\n")
	if len(lines) != 1 {
		t.Fatalf("got %d entries, want 1: %q", len(lines), lines)
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("entry is not JSON: %v", err)
	}
	if entry["level"] != "warn" || entry["msg"] != "play range rejected" {
		t.Errorf("entry = %v", entry)
	}
}

func TestNewLogger_Rejects(t *testing.T) {
	if _, err := newLogger(config.LoggingConfig{Level: "info", Format: "xml"}); err == nil {
		t.Error("newLogger() accepted format xml")
	}
	if _, err := newLogger(config.LoggingConfig{Level: "loud", Format: "json"}); err == nil {
		t.Error("newLogger() accepted level loud")
	}
}

func TestConsole_PlainHasNoEscapes(t *testing.T) {
	var buf bytes.Buffer
	con := newConsole(&buf, config.LoggingConfig{Format: "plain"})
	con.banner("lab wall")
	con.section("Animation store")
	con.stat("Frame slots", 1280)
	con.ok("Frames kept in memory only")
	con.ready("Listening on 127.0.0.1:4242")

	out := buf.String()
	if strings.Contains(out, "\033[") {
		t.Errorf("plain report has escape codes:\n%s", out)
	}
	for _, want := range []string{"lab wall", "── Animation store", "1280", "✓ Frames kept", "▶ Listening"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestConsole_ColorForConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	newConsole(&buf, config.LoggingConfig{Format: "console"}).ok("ready")
	if got, want := buf.String(), "  \033[32m✓\033[0m ready\n"; got != want {
		t.Errorf("ok() = %q, want %q", got, want)
	}
}
