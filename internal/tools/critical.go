package tools

import (
	"regexp"
	"strings"
)

// Critical actions require explicit user confirmation before they run.
// write_file always qualifies. Shell commands qualify only when they
// match a destructive pattern; a plain `ls` or `cat` never prompts.

// destructivePatterns match shell commands that delete, overwrite, or
// otherwise mutate state in ways that are hard to undo.
var destructivePatterns = []*regexp.Regexp{
	// File removal and truncation
	regexp.MustCompile(`(^|[;&|]\s*)rm\s`),
	regexp.MustCompile(`(^|[;&|]\s*)rmdir\s`),
	regexp.MustCompile(`(^|[;&|]\s*)shred\s`),
	regexp.MustCompile(`(^|[;&|]\s*)unlink\s`),
	regexp.MustCompile(`>\s*[^|&\s]`), // redirect-truncate into a file
	regexp.MustCompile(`(^|[;&|]\s*)truncate\s`),

	// Moves and overwrites
	regexp.MustCompile(`(^|[;&|]\s*)mv\s`),
	regexp.MustCompile(`(^|[;&|]\s*)cp\s+.*\s-f`),
	regexp.MustCompile(`(^|[;&|]\s*)dd\s`),

	// Process control
	regexp.MustCompile(`(^|[;&|]\s*)kill(all)?\s`),
	regexp.MustCompile(`(^|[;&|]\s*)pkill\s`),

	// Privilege escalation
	regexp.MustCompile(`(^|[;&|]\s*)sudo\s`),
	regexp.MustCompile(`(^|[;&|]\s*)su\s`),
	regexp.MustCompile(`(^|[;&|]\s*)chown\s`),
	regexp.MustCompile(`(^|[;&|]\s*)chmod\s`),

	// Package and system mutation
	regexp.MustCompile(`(^|[;&|]\s*)(apt|apt-get|yum|dnf|pacman)\s+(install|remove|purge|upgrade)`),
	regexp.MustCompile(`(^|[;&|]\s*)pip3?\s+(install|uninstall)`),
	regexp.MustCompile(`(^|[;&|]\s*)npm\s+(install|uninstall|rm)\s+(-g|--global)`),
	regexp.MustCompile(`(^|[;&|]\s*)mkfs`),
	regexp.MustCompile(`(^|[;&|]\s*)fdisk`),
	regexp.MustCompile(`(^|[;&|]\s*)(shutdown|reboot|halt|poweroff)\b`),

	// Destructive git operations
	regexp.MustCompile(`git\s+(push\s+.*--force|reset\s+--hard|clean\s+-[a-z]*f)`),
}

// IsDestructiveCommand reports whether a shell command matches any
// destructive pattern.
func IsDestructiveCommand(command string) bool {
	trimmed := strings.TrimSpace(command)
	if trimmed == "" {
		return false
	}
	for _, re := range destructivePatterns {
		if re.MatchString(trimmed) {
			return true
		}
	}
	return false
}

// IsCritical decides whether a tool invocation needs a confirmation
// prompt before it runs.
func IsCritical(toolName string, args map[string]any) bool {
	switch toolName {
	case NameWriteFile:
		return true
	case NameRunShellCommand:
		cmd, _ := args["command"].(string)
		return IsDestructiveCommand(cmd)
	default:
		return false
	}
}
