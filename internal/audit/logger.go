// Package audit implements the append-only JSONL record of actuator commands
// and safety trips. Every actuator-facing action is logged with its outcome
// and latency so post-incident analysis can reconstruct exactly what was
// commanded and when.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry represents a single audit log record.
type Entry struct {
	ID        string                 `json:"id"`
	Timestamp time.Time              `json:"ts"`
	Action    string                 `json:"action"`
	Channel   int                    `json:"channel"`
	Outcome   string                 `json:"outcome"`
	LatencyMs float64                `json:"latencyMs"`
	Params    map[string]interface{} `json:"params,omitempty"`
}

// Logger writes audit entries to an append-only JSONL file.
type Logger struct {
	mu       sync.Mutex
	filePath string
	file     *os.File
}

// NewLogger creates an audit logger writing to <logDir>/audit.jsonl.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filePath := filepath.Join(logDir, "audit.jsonl")

	file, err := os.OpenFile(filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log file: %w", err)
	}

	return &Logger{
		filePath: filePath,
		file:     file,
	}, nil
}

// LogAction records an actuator-facing action. Channel is -1 for actions not
// tied to a single channel (lifecycle, trips).
func (l *Logger) LogAction(ctx context.Context, action string, channel int, outcome string, latency time.Duration) {
	l.LogActionParams(ctx, action, channel, outcome, latency, nil)
}

// LogActionParams records an action with additional parameters.
func (l *Logger) LogActionParams(ctx context.Context, action string, channel int, outcome string, latency time.Duration, params map[string]interface{}) {
	entry := Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Action:    action,
		Channel:   channel,
		Outcome:   outcome,
		LatencyMs: float64(latency.Microseconds()) / 1000.0,
		Params:    params,
	}

	l.writeEntry(entry)
}

// writeEntry appends one JSON line. Write failures are swallowed: the audit
// trail must never take down the control path.
func (l *Logger) writeEntry(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	_, _ = l.file.Write(append(data, '\n'))
}

// Path returns the audit file location.
func (l *Logger) Path() string {
	return l.filePath
}

// Close flushes and closes the underlying file. Idempotent.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	err := l.file.Close()
	l.file = nil
	return err
}
