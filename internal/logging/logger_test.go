package logging

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func decodeLines(t *testing.T, data []byte) []map[string]any {
	t.Helper()

	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil
	}

	var entries []map[string]any
	for _, line := range strings.Split(trimmed, "\n") {
		var entry map[string]any
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			t.Fatalf("invalid JSON log line %q: %v", line, err)
		}
		entries = append(entries, entry)
	}
	return entries
}

func TestNewLogger(t *testing.T) {
	t.Run("creates log file in directory", func(t *testing.T) {
		dir := t.TempDir()

		logger, err := NewLogger(dir, LevelDebug)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		logPath := filepath.Join(dir, LogFileName)
		if _, err := os.Stat(logPath); os.IsNotExist(err) {
			t.Errorf("log file was not created at %s", logPath)
		}
	})

	t.Run("writes to stderr when dir is empty", func(t *testing.T) {
		logger, err := NewLogger("", LevelInfo)
		if err != nil {
			t.Fatalf("NewLogger failed: %v", err)
		}
		defer logger.Close()

		if logger.file != nil {
			t.Error("expected file to be nil when dir is empty")
		}
	})

	t.Run("defaults to INFO level for invalid level string", func(t *testing.T) {
		logger := NewWriterLogger(&bytes.Buffer{}, "invalid")
		if got := logger.Level(); got != LevelInfo {
			t.Errorf("Level() = %q, want %q", got, LevelInfo)
		}
	})
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelWarn)

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")
	logger.Error("error message")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 2 {
		t.Fatalf("expected 2 log lines at WARN, got %d", len(entries))
	}
	if entries[0]["level"] != "WARN" || entries[1]["level"] != "ERROR" {
		t.Errorf("unexpected levels: %v, %v", entries[0]["level"], entries[1]["level"])
	}
}

func TestSetLevel_SharedWithChildren(t *testing.T) {
	var buf bytes.Buffer
	root := NewWriterLogger(&buf, LevelError)
	child := root.WithPhase("dispatch")

	child.Info("hidden")
	root.SetLevel("debug")
	child.Debug("visible")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(entries))
	}
	if entries[0]["msg"] != "visible" {
		t.Errorf("msg = %v, want %q", entries[0]["msg"], "visible")
	}
	if got := child.Level(); got != LevelDebug {
		t.Errorf("child Level() = %q, want %q", got, LevelDebug)
	}
}

func TestContextPropagation(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelDebug)

	logger.WithOwner("owner-1").WithTask(42).WithPhase("dispatch").Info("delivered", "kind", "finished")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(entries))
	}
	entry := entries[0]

	if entry["owner_id"] != "owner-1" {
		t.Errorf("owner_id = %v, want %q", entry["owner_id"], "owner-1")
	}
	// JSON numbers decode as float64
	if entry["task_id"] != float64(42) {
		t.Errorf("task_id = %v, want 42", entry["task_id"])
	}
	if entry["phase"] != "dispatch" {
		t.Errorf("phase = %v, want %q", entry["phase"], "dispatch")
	}
	if entry["kind"] != "finished" {
		t.Errorf("kind = %v, want %q", entry["kind"], "finished")
	}
}

func TestWith(t *testing.T) {
	var buf bytes.Buffer
	logger := NewWriterLogger(&buf, LevelDebug)

	if logger.With() != logger {
		t.Error("With() with no args should return the same logger")
	}

	// Non-string keys are skipped
	logger.With("workers", 8, 99, "ignored").Info("started")

	entries := decodeLines(t, buf.Bytes())
	if len(entries) != 1 {
		t.Fatalf("expected 1 log line, got %d", len(entries))
	}
	if entries[0]["workers"] != float64(8) {
		t.Errorf("workers = %v, want 8", entries[0]["workers"])
	}
}

func TestNopLogger(t *testing.T) {
	logger := NopLogger()
	logger.Error("nothing happens")
	if err := logger.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"Warn", LevelWarn},
		{"error", LevelError},
		{"verbose", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := ParseLevel(tt.input); got != tt.want {
				t.Errorf("ParseLevel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidLevels(t *testing.T) {
	levels := ValidLevels()
	if len(levels) != 4 {
		t.Errorf("ValidLevels() returned %d levels, want 4", len(levels))
	}
}

func TestClose(t *testing.T) {
	dir := t.TempDir()
	logger, err := NewLogger(dir, LevelInfo)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}

	logger.Info("before close")
	if err := logger.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	// Second close is a no-op
	if err := logger.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, LogFileName))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "before close") {
		t.Error("log file should contain the message written before Close")
	}
}

func TestConcurrentWrites(t *testing.T) {
	var mu sync.Mutex
	var buf bytes.Buffer
	logger := NewWriterLogger(&lockedWriter{mu: &mu, w: &buf}, LevelDebug)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				logger.WithTask(uint64(n)).Debug("tick", "j", j)
			}
		}(i)
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if got := len(decodeLines(t, buf.Bytes())); got != 100 {
		t.Errorf("expected 100 log lines, got %d", got)
	}
}

type lockedWriter struct {
	mu *sync.Mutex
	w  *bytes.Buffer
}

func (w *lockedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.w.Write(p)
}
