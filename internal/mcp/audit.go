package mcp

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// AuditFile is the name of the tool-call audit log inside the inflood
// directory.
const AuditFile = "audit.jsonl"

// AuditEntry represents a single audit log entry for an MCP tool invocation.
type AuditEntry struct {
	Timestamp  time.Time         `json:"timestamp"`
	Tool       string            `json:"tool"`
	DurationMs int64             `json:"duration_ms"`
	Status     string            `json:"status"` // "success" or "error"
	Error      string            `json:"error,omitempty"`
	Params     map[string]string `json:"params,omitempty"`
}

// AuditLogger appends audit entries to a JSONL file. It is safe for
// concurrent use. A nil AuditLogger is safe to use; all methods are no-ops
// on nil receiver.
type AuditLogger struct {
	mu   sync.Mutex
	file *os.File
}

// NewAuditLogger opens dir/audit.jsonl for appending. Returns nil if the
// file cannot be created.
func NewAuditLogger(dir string) *AuditLogger {
	if err := os.MkdirAll(dir, 0700); err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot create audit log directory %s: %v\n", dir, err)
		return nil
	}

	path := filepath.Join(dir, AuditFile)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: cannot open audit log %s: %v\n", path, err)
		return nil
	}
	return &AuditLogger{file: f}
}

// Log writes entry as a single JSONL line. Safe to call on nil receiver.
func (al *AuditLogger) Log(entry AuditEntry) {
	if al == nil || al.file == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}
	data = append(data, '\n')

	al.mu.Lock()
	defer al.mu.Unlock()
	_, _ = al.file.Write(data)
}

// Close closes the log file. Safe to call on nil receiver.
func (al *AuditLogger) Close() error {
	if al == nil || al.file == nil {
		return nil
	}

	al.mu.Lock()
	defer al.mu.Unlock()
	err := al.file.Close()
	al.file = nil
	return err
}

// auditTool records one tool call in the audit log and the operational log.
func (s *Server) auditTool(toolName string, start time.Time, err error, params map[string]string) {
	status := "success"
	errMsg := ""
	if err != nil {
		status = "error"
		errMsg = err.Error()
	}

	duration := time.Since(start)
	s.audit.Log(AuditEntry{
		Timestamp:  start,
		Tool:       toolName,
		DurationMs: duration.Milliseconds(),
		Status:     status,
		Error:      errMsg,
		Params:     params,
	})
	s.logger.Debug("tool call", "tool", toolName, "status", status, "duration", duration)
}
