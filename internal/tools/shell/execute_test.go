package shell

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shellmind/internal/tools"
)

func newTool(t *testing.T) (*tools.Tool, *tools.ExecutionContext, string) {
	t.Helper()
	dir := t.TempDir()
	ec, err := tools.NewExecutionContext(dir)
	if err != nil {
		t.Fatal(err)
	}
	return RunShellCommandTool(ec, Options{}), ec, dir
}

func resultOf(t *testing.T, out any) map[string]any {
	t.Helper()
	wrapper, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("output type = %T, want map", out)
	}
	inner, ok := wrapper["result"].(map[string]any)
	if !ok {
		t.Fatalf("missing result key in %v", wrapper)
	}
	return inner
}

func TestRunCommandSuccess(t *testing.T) {
	tool, _, _ := newTool(t)

	out, err := tool.Execute(context.Background(), map[string]any{"command": "echo hello"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	result := resultOf(t, out)
	if !strings.Contains(result["stdout"].(string), "hello") {
		t.Errorf("stdout = %q", result["stdout"])
	}
	if result["exit_code"] != 0 {
		t.Errorf("exit_code = %v", result["exit_code"])
	}
}

func TestRunCommandNonZeroExit(t *testing.T) {
	tool, _, _ := newTool(t)

	out, err := tool.Execute(context.Background(), map[string]any{"command": "ls /definitely/not/a/path"})
	if err == nil {
		t.Fatal("expected error for non-zero exit")
	}

	// Structured output still carries stderr and the exit code
	result := resultOf(t, out)
	if result["exit_code"] == 0 {
		t.Error("exit_code should be non-zero")
	}
	if result["stderr"].(string) == "" {
		t.Error("stderr should be captured")
	}
}

func TestRunCommandUsesContextCwd(t *testing.T) {
	tool, _, dir := newTool(t)
	os.WriteFile(filepath.Join(dir, "marker.txt"), []byte("x"), 0644)

	out, err := tool.Execute(context.Background(), map[string]any{"command": "ls"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !strings.Contains(resultOf(t, out)["stdout"].(string), "marker.txt") {
		t.Error("command did not run in the context working directory")
	}
}

func TestChangeDirectoryIntercepted(t *testing.T) {
	tool, ec, dir := newTool(t)
	sub := filepath.Join(dir, "sub")
	os.Mkdir(sub, 0755)

	out, err := tool.Execute(context.Background(), map[string]any{"command": "cd sub"})
	if err != nil {
		t.Fatalf("cd: %v", err)
	}
	msg, ok := out.(string)
	if !ok || !strings.Contains(msg, sub) {
		t.Errorf("cd output = %v", out)
	}
	if ec.Cwd() != sub {
		t.Errorf("context cwd = %q, want %q", ec.Cwd(), sub)
	}

	// Process cwd untouched
	wd, _ := os.Getwd()
	if wd == sub {
		t.Error("cd must not change process working directory")
	}

	// Subsequent commands observe the new directory
	os.WriteFile(filepath.Join(sub, "inner.txt"), []byte("x"), 0644)
	out, err = tool.Execute(context.Background(), map[string]any{"command": "ls"})
	if err != nil {
		t.Fatalf("ls after cd: %v", err)
	}
	if !strings.Contains(resultOf(t, out)["stdout"].(string), "inner.txt") {
		t.Error("ls did not observe directory change")
	}
}

func TestChangeDirectoryMissingTarget(t *testing.T) {
	tool, ec, dir := newTool(t)

	if _, err := tool.Execute(context.Background(), map[string]any{"command": "cd missing"}); err == nil {
		t.Error("expected error for missing target")
	}
	if ec.Cwd() != dir {
		t.Errorf("failed cd mutated cwd to %q", ec.Cwd())
	}
}

func TestIsChangeDirectory(t *testing.T) {
	tests := []struct {
		command string
		want    bool
	}{
		{"cd /tmp", true},
		{"cd", true},
		{"  cd sub ", true},
		{"cdparanoia", false},
		{"echo cd", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsChangeDirectory(tt.command); got != tt.want {
			t.Errorf("IsChangeDirectory(%q) = %v, want %v", tt.command, got, tt.want)
		}
	}
}

func TestTimeout(t *testing.T) {
	dir := t.TempDir()
	ec, _ := tools.NewExecutionContext(dir)
	tool := RunShellCommandTool(ec, Options{Timeout: 100 * time.Millisecond})

	_, err := tool.Execute(context.Background(), map[string]any{"command": "sleep 2"})
	if err == nil || !strings.Contains(err.Error(), "timed out") {
		t.Errorf("expected timeout error, got %v", err)
	}
}

func TestOutputTruncation(t *testing.T) {
	dir := t.TempDir()
	ec, _ := tools.NewExecutionContext(dir)
	tool := RunShellCommandTool(ec, Options{MaxOutputBytes: 100})

	out, err := tool.Execute(context.Background(), map[string]any{"command": "yes | head -n 500"})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	stdout := resultOf(t, out)["stdout"].(string)
	if !strings.Contains(stdout, "[truncated]") {
		t.Error("expected truncation marker")
	}
	if len(stdout) > 200 {
		t.Errorf("stdout length = %d, truncation failed", len(stdout))
	}
}
