package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func resetState() {
	CloseAll()
	CloseAudit()
	loggers = make(map[Category]*Logger)
	logsDir = ""
	enabled = false
	logLevel = LevelInfo
	auditLogger = nil
}

// TestAllCategoriesLog verifies every category writes its own file.
func TestAllCategoriesLog(t *testing.T) {
	tempDir := t.TempDir()
	resetState()

	if err := Initialize(tempDir, "debug"); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if !Enabled() {
		t.Error("Expected logging to be enabled")
	}

	categories := []Category{
		CategoryBoot,
		CategorySession,
		CategoryMemory,
		CategoryTools,
		CategoryExecutor,
		CategoryLoop,
		CategoryOracle,
		CategoryStore,
		CategoryEmbedding,
	}

	for _, cat := range categories {
		logger := Get(cat)
		logger.Info("Test info message for %s", cat)
		logger.Debug("Test debug message for %s", cat)
		logger.Warn("Test warn message for %s", cat)
		logger.Error("Test error message for %s", cat)
	}

	// Convenience functions
	Boot("Convenience boot log")
	Session("Convenience session log")
	Memory("Convenience memory log")
	Tools("Convenience tools log")
	Executor("Convenience executor log")
	Loop("Convenience loop log")
	Oracle("Convenience oracle log")
	Store("Convenience store log")
	Embedding("Convenience embedding log")

	CloseAll()

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("Failed to read logs dir: %v", err)
	}

	for _, cat := range categories {
		found := false
		for _, entry := range entries {
			if strings.Contains(entry.Name(), string(cat)+".log") {
				found = true
				content, err := os.ReadFile(filepath.Join(tempDir, entry.Name()))
				if err != nil {
					t.Errorf("Failed to read log file for %s: %v", cat, err)
					continue
				}
				if len(content) == 0 {
					t.Errorf("Log file for %s is empty", cat)
				}
				break
			}
		}
		if !found {
			t.Errorf("No log file found for category: %s", cat)
		}
	}
}

// TestLoggingDisabled verifies an empty dir makes every call a no-op.
func TestLoggingDisabled(t *testing.T) {
	resetState()

	if err := Initialize("", "debug"); err != nil {
		t.Fatalf("Failed to initialize logging: %v", err)
	}
	if Enabled() {
		t.Error("Expected logging to be disabled with empty dir")
	}

	// These must not panic or create files
	Boot("This should NOT be logged")
	Tools("This should NOT be logged")

	logger := Get(CategoryLoop)
	logger.Info("This should NOT be logged")
	logger.Error("This should NOT be logged")

	CloseAll()
}

// TestLogLevelFilter verifies debug lines are suppressed at info level.
func TestLogLevelFilter(t *testing.T) {
	tempDir := t.TempDir()
	resetState()

	if err := Initialize(tempDir, "info"); err != nil {
		t.Fatalf("Failed to initialize: %v", err)
	}

	logger := Get(CategoryTools)
	logger.Debug("suppressed line")
	logger.Info("visible line")
	CloseAll()

	entries, _ := os.ReadDir(tempDir)
	var content []byte
	for _, e := range entries {
		if strings.Contains(e.Name(), "tools.log") {
			content, _ = os.ReadFile(filepath.Join(tempDir, e.Name()))
		}
	}
	if strings.Contains(string(content), "suppressed line") {
		t.Error("debug line should be suppressed at info level")
	}
	if !strings.Contains(string(content), "visible line") {
		t.Error("info line should be written at info level")
	}
}

// TestTimerLogging tests the timing helper
func TestTimerLogging(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	Initialize(tempDir, "debug")

	timer := StartTimer(CategoryExecutor, "TestOperation")
	time.Sleep(time.Millisecond)
	elapsed := timer.Stop()

	if elapsed <= 0 {
		t.Error("Timer should have recorded non-zero duration")
	}

	CloseAll()
}

// TestAuditTrail verifies audit events land in the audit file as JSON lines.
func TestAuditTrail(t *testing.T) {
	tempDir := t.TempDir()
	resetState()
	Initialize(tempDir, "debug")

	if err := InitAudit(); err != nil {
		t.Fatalf("InitAudit: %v", err)
	}

	audit := AuditWithSession("sess-1")
	audit.SessionStart("sess-1")
	audit.ToolExec("run_shell_command", "ls -la", 12, true, "")
	audit.Confirmation("write_file", "/tmp/out.txt", false)
	audit.SessionEnd("sess-1", 3, 4500)

	CloseAudit()

	entries, _ := os.ReadDir(tempDir)
	var content []byte
	for _, e := range entries {
		if strings.Contains(e.Name(), "audit.log") {
			content, _ = os.ReadFile(filepath.Join(tempDir, e.Name()))
		}
	}
	if len(content) == 0 {
		t.Fatal("audit log is empty")
	}
	text := string(content)
	for _, want := range []string{"session_start", "tool_complete", "confirm_decline", "session_end", "sess-1"} {
		if !strings.Contains(text, want) {
			t.Errorf("audit log missing %q", want)
		}
	}
}
