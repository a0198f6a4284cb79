package logger

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestStandardLogger_Verbose tests that Debug output follows the verbose flag.
func TestStandardLogger_Verbose(t *testing.T) {
	var buf bytes.Buffer
	quiet := NewStandardLogger(log.New(&buf, "", 0), false)

	quiet.Debug("hidden %d", 1)
	quiet.Info("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("expected debug output suppressed, got %q", out)
	}
	if !strings.Contains(out, "[INFO] shown 2") {
		t.Fatalf("expected info output, got %q", out)
	}

	buf.Reset()
	verbose := NewStandardLogger(log.New(&buf, "", 0), true)
	verbose.Debug("visible %d", 3)
	if !strings.Contains(buf.String(), "[DEBUG] visible 3") {
		t.Fatalf("expected debug output when verbose, got %q", buf.String())
	}
}

// TestMockLogger_Records tests that calls are captured with formatting applied.
func TestMockLogger_Records(t *testing.T) {
	m := NewMockLogger()

	m.Error("failed: %s", "boom")
	m.Info("ok")

	errs := m.Errors()
	if len(errs) != 1 || errs[0] != "failed: boom" {
		t.Fatalf("expected recorded error, got %v", errs)
	}
	if len(m.InfoCalls) != 1 || m.InfoCalls[0] != "ok" {
		t.Fatalf("expected recorded info, got %v", m.InfoCalls)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !m.CloseCalled {
		t.Fatal("expected CloseCalled to be set")
	}
}

// TestFileLogger_AppendsToFile tests that file output lands on disk and
// that a console+file fan-out reaches both backends.
func TestFileLogger_AppendsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daemon.log")

	fl, err := NewFileLogger(path, false)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}

	mock := NewMockLogger()
	m := NewMultiLogger(mock, fl)
	m.Info("listening on %s", "127.0.0.1:9543")
	m.Debug("suppressed")
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "[INFO] listening on 127.0.0.1:9543") {
		t.Fatalf("expected info line in file, got %q", data)
	}
	if strings.Contains(string(data), "suppressed") {
		t.Fatalf("expected debug suppressed without verbose, got %q", data)
	}
	if len(mock.InfoCalls) != 1 {
		t.Fatalf("expected console backend to receive the message, got %v", mock.InfoCalls)
	}

	// Appending across reopen keeps earlier lines.
	fl2, err := NewFileLogger(path, false)
	if err != nil {
		t.Fatalf("NewFileLogger reopen: %v", err)
	}
	fl2.Error("batch failed")
	if err := fl2.Close(); err != nil {
		t.Fatalf("Close reopen: %v", err)
	}
	data, err = os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !strings.Contains(string(data), "[INFO]") || !strings.Contains(string(data), "[ERROR] batch failed") {
		t.Fatalf("expected both lines after reopen, got %q", data)
	}
}

// TestMultiLogger_FanOut tests that every backend receives each message.
func TestMultiLogger_FanOut(t *testing.T) {
	a, b := NewMockLogger(), NewMockLogger()
	m := NewMultiLogger(a, b)

	m.Warning("careful %d", 7)

	for i, mock := range []*MockLogger{a, b} {
		if len(mock.WarningCalls) != 1 || mock.WarningCalls[0] != "careful 7" {
			t.Fatalf("backend %d: expected fanned-out warning, got %v", i, mock.WarningCalls)
		}
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !a.CloseCalled || !b.CloseCalled {
		t.Fatal("expected every backend closed")
	}
}
