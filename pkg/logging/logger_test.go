package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// setupTestDir points the log directory at a temp dir and resets global state
func setupTestDir(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	t.Setenv(EnvLogDir, tempDir)

	origLogDir, origInitErr := logDir, initErr
	origRunID := runID

	logDir = ""
	initErr = nil
	initOnce = sync.Once{}
	runID = ""
	runIDOnce = sync.Once{}

	t.Cleanup(func() {
		logDir, initErr = origLogDir, origInitErr
		runID = origRunID
		initOnce = sync.Once{}
		runIDOnce = sync.Once{}
	})
	return tempDir
}

func TestNewLogger(t *testing.T) {
	dir := setupTestDir(t)

	logger, err := NewLogger("bootstrap")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.component != "bootstrap" {
		t.Errorf("Expected component 'bootstrap', got %q", logger.component)
	}
	if logger.RunID() == "" {
		t.Error("Expected non-empty run ID")
	}
	if filepath.Dir(logger.LogPath()) != dir {
		t.Errorf("Expected log in %s, got %s", dir, logger.LogPath())
	}
	if _, err := os.Stat(logger.LogPath()); os.IsNotExist(err) {
		t.Errorf("Log file does not exist at %s", logger.LogPath())
	}
}

func TestLoggerFormatting(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	logger.Debugf("Debug message")
	logger.Infof("Info message %d", 123)
	logger.Warnf("Warning message")
	logger.Errorf("Error message")

	content, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}

	for _, pattern := range []string{
		"[test] [DEBUG] Debug message",
		"[test] [INFO] Info message 123",
		"[test] [WARN] Warning message",
		"[test] [ERROR] Error message",
	} {
		if !strings.Contains(string(content), pattern) {
			t.Errorf("Log content missing expected pattern: %q\nContent:\n%s", pattern, content)
		}
	}
}

func TestMultipleComponentsShareRun(t *testing.T) {
	setupTestDir(t)

	logger1, err := NewLogger("secret")
	if err != nil {
		t.Fatalf("Failed to create logger1: %v", err)
	}
	defer logger1.Close()

	logger2, err := NewLogger("cache")
	if err != nil {
		t.Fatalf("Failed to create logger2: %v", err)
	}
	defer logger2.Close()

	if logger1.RunID() != logger2.RunID() {
		t.Errorf("Expected same run ID, got %q and %q", logger1.RunID(), logger2.RunID())
	}
	if logger1.LogPath() != logger2.LogPath() {
		t.Errorf("Expected same log path, got %q and %q", logger1.LogPath(), logger2.LogPath())
	}

	logger1.Infof("from secret")
	logger2.Infof("from cache")

	content, err := os.ReadFile(logger1.LogPath())
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "[secret]") || !strings.Contains(string(content), "[cache]") {
		t.Errorf("Log missing component entries:\n%s", content)
	}
}

func TestWithSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWriterLogger("bootstrap", &buf)
	child := parent.With("browser")

	child.Infof("launching")

	if !strings.Contains(buf.String(), "[browser] [INFO] launching") {
		t.Errorf("child output missing: %q", buf.String())
	}
	if child.RunID() != parent.RunID() {
		t.Error("child should share run ID")
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	var logger *Logger
	logger.Infof("nothing")
	if logger.With("x") != nil {
		t.Error("With on nil logger should return nil")
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Close on nil logger: %v", err)
	}
}

func TestGetRunID(t *testing.T) {
	setupTestDir(t)

	id1 := GetRunID()
	id2 := GetRunID()
	if id1 != id2 {
		t.Errorf("Expected consistent run ID, got %q and %q", id1, id2)
	}
	if id1 == "" {
		t.Error("Expected non-empty run ID")
	}
}

func TestGetLogDirectory(t *testing.T) {
	want := setupTestDir(t)

	dir, err := GetLogDirectory()
	if err != nil {
		t.Fatalf("Failed to get log directory: %v", err)
	}
	if dir != want {
		t.Errorf("Expected %s, got %s", want, dir)
	}
}

func TestLoggerClose(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("First close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("Second close failed: %v", err)
	}
}

func TestLogPathFormat(t *testing.T) {
	setupTestDir(t)

	logger, err := NewLogger("test")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	fileName := filepath.Base(logger.LogPath())
	if !strings.HasSuffix(fileName, "-sms-e2e.log") {
		t.Errorf("Expected log file to end with '-sms-e2e.log', got %q", fileName)
	}
	if !strings.HasPrefix(fileName, logger.RunID()) {
		t.Errorf("Expected log file to start with run ID %q, got %q", logger.RunID(), fileName)
	}
}

func TestFallbackWhenDirectoryUnusable(t *testing.T) {
	setupTestDir(t)
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvLogDir, filepath.Join(blocker, "logs"))

	logger, err := NewLogger("test")
	if err == nil {
		t.Fatal("expected an error when the log directory cannot be created")
	}
	if logger == nil {
		t.Fatal("expected a fallback logger")
	}
	if logger.LogPath() != "" {
		t.Errorf("fallback logger should have no path, got %q", logger.LogPath())
	}
}
