// Package shell provides subprocess execution against an explicit
// working-directory context. The process never chdirs; `cd` commands
// are intercepted and mutate the shared ExecutionContext instead.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"shellmind/internal/logging"
	"shellmind/internal/tools"
)

// Options configure shell execution limits.
type Options struct {
	// Timeout bounds each command. Zero means 60 seconds.
	Timeout time.Duration

	// MaxOutputBytes truncates combined output. Zero means 50000.
	MaxOutputBytes int
}

func (o Options) timeout() time.Duration {
	if o.Timeout <= 0 {
		return 60 * time.Second
	}
	return o.Timeout
}

func (o Options) maxOutput() int {
	if o.MaxOutputBytes <= 0 {
		return 50000
	}
	return o.MaxOutputBytes
}

// RunShellCommandTool returns the shell execution tool. The result is a
// map shaped {"result": {"stdout", "stderr", "exit_code"}} so later plan
// steps can index into it.
func RunShellCommandTool(ec *tools.ExecutionContext, opts Options) *tools.Tool {
	return &tools.Tool{
		Name:        tools.NameRunShellCommand,
		Description: "Execute a shell command in the session working directory and return stdout, stderr, and the exit code",
		Category:    tools.CategoryShell,
		Execute: func(ctx context.Context, args map[string]any) (any, error) {
			return executeRunShellCommand(ctx, ec, opts, args)
		},
		Schema: tools.ToolSchema{
			Required: []string{"command"},
			Properties: map[string]tools.Property{
				"command": {
					Type:        "string",
					Description: "The command to execute",
				},
			},
		},
	}
}

// IsChangeDirectory reports whether a command is a bare `cd`, which is
// handled without spawning a subprocess.
func IsChangeDirectory(command string) bool {
	fields := strings.Fields(strings.TrimSpace(command))
	return len(fields) > 0 && fields[0] == "cd"
}

func executeRunShellCommand(ctx context.Context, ec *tools.ExecutionContext, opts Options, args map[string]any) (any, error) {
	command, _ := args["command"].(string)
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("command is required")
	}

	// cd mutates the execution context; a subprocess chdir would be
	// lost the moment it exits.
	if IsChangeDirectory(command) {
		return executeChangeDirectory(ec, command)
	}

	logging.ToolsDebug("run_shell_command: cmd=%s dir=%s", command, ec.Cwd())

	execCtx, cancel := context.WithTimeout(ctx, opts.timeout())
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", command)
	cmd.Dir = ec.Cwd()
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		// A killed subprocess still yields an ExitError (code -1), so
		// the deadline has to be checked before classifying the exit.
		if execCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("command timed out after %v", opts.timeout())
		}
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("command failed to start: %w", runErr)
		}
	}

	result := map[string]any{
		"result": map[string]any{
			"stdout":    truncate(stdout.String(), opts.maxOutput()),
			"stderr":    truncate(stderr.String(), opts.maxOutput()),
			"exit_code": exitCode,
		},
	}

	if exitCode != 0 {
		logging.Tools("run_shell_command failed: %s (exit %d)", command, exitCode)
		return result, fmt.Errorf("command exited with code %d: %s", exitCode, strings.TrimSpace(stderr.String()))
	}

	logging.Tools("run_shell_command completed: %s (%d bytes stdout)", command, stdout.Len())
	return result, nil
}

func executeChangeDirectory(ec *tools.ExecutionContext, command string) (any, error) {
	fields := strings.Fields(strings.TrimSpace(command))

	target := ""
	switch len(fields) {
	case 1:
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("cd: cannot resolve home directory: %w", err)
		}
		target = home
	case 2:
		target = fields[1]
	default:
		return nil, fmt.Errorf("cd: too many arguments")
	}

	if err := ec.Chdir(target); err != nil {
		return nil, err
	}

	logging.Tools("cd: working directory now %s", ec.Cwd())
	return fmt.Sprintf("Changed directory to %s", ec.Cwd()), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "\n...[truncated]"
}
