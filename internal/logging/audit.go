package logging

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditEventType identifies what kind of event is being recorded.
type AuditEventType string

const (
	// Session lifecycle
	AuditSessionStart AuditEventType = "session_start"
	AuditSessionEnd   AuditEventType = "session_end"
	AuditTurnStart    AuditEventType = "turn_start"
	AuditTurnEnd      AuditEventType = "turn_end"

	// Tool execution
	AuditToolInvoke   AuditEventType = "tool_invoke"
	AuditToolComplete AuditEventType = "tool_complete"
	AuditToolError    AuditEventType = "tool_error"

	// Critical-action gate
	AuditConfirmPrompt  AuditEventType = "confirm_prompt"
	AuditConfirmAllow   AuditEventType = "confirm_allow"
	AuditConfirmDecline AuditEventType = "confirm_decline"

	// Oracle calls
	AuditOracleRequest  AuditEventType = "oracle_request"
	AuditOracleResponse AuditEventType = "oracle_response"
	AuditOracleError    AuditEventType = "oracle_error"

	// Memory operations
	AuditMemoryStore  AuditEventType = "memory_store"
	AuditMemoryRecall AuditEventType = "memory_recall"
)

// AuditEvent is a single JSONL audit record. Shell commands and file
// writes happen on the user's machine, so the trail of what ran, what
// was confirmed, and what was declined must survive the session.
type AuditEvent struct {
	Timestamp  int64          `json:"ts"` // Unix milliseconds
	EventType  AuditEventType `json:"event"`
	SessionID  string         `json:"session,omitempty"`
	Target     string         `json:"target,omitempty"` // tool name, model, path
	Action     string         `json:"action,omitempty"` // command text, summary
	Success    bool           `json:"success"`
	DurationMs int64          `json:"dur_ms,omitempty"`
	Error      string         `json:"error,omitempty"`
	Message    string         `json:"msg,omitempty"`
}

var (
	auditFile   *os.File
	auditMu     sync.Mutex
	auditLogger *AuditLogger
)

// AuditLogger writes structured audit records, optionally scoped to a session.
type AuditLogger struct {
	sessionID string
}

// InitAudit opens the audit log. No-op when file logging is disabled.
func InitAudit() error {
	if !Enabled() {
		return nil
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		return nil
	}

	date := time.Now().Format("2006-01-02")
	auditPath := filepath.Join(logsDir, fmt.Sprintf("%s_audit.log", date))

	file, err := os.OpenFile(auditPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to create audit log: %w", err)
	}
	auditFile = file

	auditFile.WriteString(fmt.Sprintf("# Audit log started at %s\n", time.Now().Format(time.RFC3339)))
	return nil
}

// CloseAudit closes the audit log file
func CloseAudit() {
	auditMu.Lock()
	defer auditMu.Unlock()

	if auditFile != nil {
		auditFile.Close()
		auditFile = nil
	}
}

// Audit returns the global audit logger
func Audit() *AuditLogger {
	if auditLogger == nil {
		auditLogger = &AuditLogger{}
	}
	return auditLogger
}

// AuditWithSession creates an audit logger scoped to a session
func AuditWithSession(sessionID string) *AuditLogger {
	return &AuditLogger{sessionID: sessionID}
}

// Log writes an audit event
func (a *AuditLogger) Log(event AuditEvent) {
	if !Enabled() || auditFile == nil {
		return
	}

	if event.Timestamp == 0 {
		event.Timestamp = time.Now().UnixMilli()
	}
	if event.SessionID == "" && a.sessionID != "" {
		event.SessionID = a.sessionID
	}

	auditMu.Lock()
	defer auditMu.Unlock()

	data, err := json.Marshal(event)
	if err == nil {
		auditFile.WriteString(string(data) + "\n")
	}
}

// SessionStart logs session start
func (a *AuditLogger) SessionStart(sessionID string) {
	a.Log(AuditEvent{
		EventType: AuditSessionStart,
		SessionID: sessionID,
		Success:   true,
		Message:   fmt.Sprintf("Session started: %s", sessionID),
	})
}

// SessionEnd logs session end
func (a *AuditLogger) SessionEnd(sessionID string, turnCount int, durationMs int64) {
	a.Log(AuditEvent{
		EventType:  AuditSessionEnd,
		SessionID:  sessionID,
		Success:    true,
		DurationMs: durationMs,
		Message:    fmt.Sprintf("Session ended: %s (%d turns)", sessionID, turnCount),
	})
}

// ToolExec logs a completed tool execution
func (a *AuditLogger) ToolExec(toolName, action string, durationMs int64, success bool, errMsg string) {
	eventType := AuditToolComplete
	if !success {
		eventType = AuditToolError
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Target:     toolName,
		Action:     action,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
		Message:    fmt.Sprintf("Tool %s (%dms, success=%v)", toolName, durationMs, success),
	})
}

// Confirmation logs the outcome of a critical-action prompt
func (a *AuditLogger) Confirmation(toolName, action string, approved bool) {
	eventType := AuditConfirmAllow
	if !approved {
		eventType = AuditConfirmDecline
	}
	a.Log(AuditEvent{
		EventType: eventType,
		Target:    toolName,
		Action:    action,
		Success:   approved,
		Message:   fmt.Sprintf("Critical action %s: approved=%v", toolName, approved),
	})
}

// OracleCall logs a decision oracle round trip
func (a *AuditLogger) OracleCall(model string, durationMs int64, success bool, errMsg string) {
	eventType := AuditOracleResponse
	if !success {
		eventType = AuditOracleError
	}
	a.Log(AuditEvent{
		EventType:  eventType,
		Target:     model,
		Success:    success,
		DurationMs: durationMs,
		Error:      errMsg,
	})
}

// MemoryOp logs a vector store write or recall
func (a *AuditLogger) MemoryOp(op AuditEventType, detail string, success bool) {
	a.Log(AuditEvent{
		EventType: op,
		Action:    detail,
		Success:   success,
	})
}
