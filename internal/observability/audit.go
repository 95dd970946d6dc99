package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AuditEventType categorizes audit events.
type AuditEventType string

const (
	AuditEventImportStart       AuditEventType = "import.start"
	AuditEventImportComplete    AuditEventType = "import.complete"
	AuditEventImportError       AuditEventType = "import.error"
	AuditEventUnionFindComplete AuditEventType = "unionfind.complete"
	AuditEventUnionFindError    AuditEventType = "unionfind.error"
	AuditEventWorkflowStart     AuditEventType = "workflow.start"
	AuditEventWorkflowEnd       AuditEventType = "workflow.end"
)

// AuditEvent represents a single audit log entry.
type AuditEvent struct {
	Timestamp   time.Time      `json:"timestamp"`
	EventType   AuditEventType `json:"event_type"`
	SessionID   string         `json:"session_id"`
	RunID       string         `json:"run_id,omitempty"`
	WorkflowID  string         `json:"workflow_id,omitempty"`
	Success     bool           `json:"success"`
	Duration    time.Duration  `json:"duration_ms,omitempty"`
	Message     string         `json:"message,omitempty"`
	Details     map[string]any `json:"details,omitempty"`
	ErrorDetail string         `json:"error_detail,omitempty"`
}

// AuditLogger writes one JSON line per run event.
type AuditLogger struct {
	mu        sync.Mutex
	writer    io.Writer
	sessionID string
	enabled   bool
}

// AuditConfig configures the audit logger.
type AuditConfig struct {
	Enabled    bool
	OutputPath string // File path or "stdout"/"stderr"
	SessionID  string
}

// DefaultAuditConfig returns default audit configuration.
func DefaultAuditConfig() *AuditConfig {
	return &AuditConfig{
		Enabled:    false,
		OutputPath: "stderr",
	}
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(config *AuditConfig) (*AuditLogger, error) {
	if config == nil {
		config = DefaultAuditConfig()
	}
	if !config.Enabled {
		return &AuditLogger{enabled: false}, nil
	}

	var writer io.Writer
	switch config.OutputPath {
	case "stdout":
		writer = os.Stdout
	case "stderr", "":
		writer = os.Stderr
	default:
		f, err := os.OpenFile(config.OutputPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open audit log: %w", err)
		}
		writer = f
	}

	sessionID := config.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	return &AuditLogger{
		writer:    writer,
		sessionID: sessionID,
		enabled:   true,
	}, nil
}

// NewAuditWriter returns an enabled logger writing to w.
func NewAuditWriter(w io.Writer, sessionID string) *AuditLogger {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return &AuditLogger{writer: w, sessionID: sessionID, enabled: true}
}

// SessionID returns the session all events are tagged with.
func (l *AuditLogger) SessionID() string {
	return l.sessionID
}

// Log writes an audit event.
func (l *AuditLogger) Log(event *AuditEvent) error {
	if !l.enabled {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	if event.SessionID == "" {
		event.SessionID = l.sessionID
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	_, err = fmt.Fprintf(l.writer, "%s\n", data)
	return err
}

// LogImportStart logs the start of a graph import.
func (l *AuditLogger) LogImportStart(ctx context.Context, runID, direction, variant string) {
	_ = l.Log(&AuditEvent{
		EventType: AuditEventImportStart,
		RunID:     runID,
		Success:   true,
		Message:   fmt.Sprintf("Import started: direction=%s variant=%s", direction, variant),
		Details: map[string]any{
			"direction": direction,
			"variant":   variant,
		},
	})
}

// LogImportComplete logs a finished graph import.
func (l *AuditLogger) LogImportComplete(ctx context.Context, runID string, duration time.Duration, nodes, relationships, skipped int64) {
	_ = l.Log(&AuditEvent{
		EventType: AuditEventImportComplete,
		RunID:     runID,
		Success:   true,
		Duration:  duration,
		Message:   fmt.Sprintf("Import completed: %d nodes, %d relationships", nodes, relationships),
		Details: map[string]any{
			"nodes":         nodes,
			"relationships": relationships,
			"skipped":       skipped,
		},
	})
}

// LogImportError logs a failed graph import.
func (l *AuditLogger) LogImportError(ctx context.Context, runID string, err error) {
	_ = l.Log(&AuditEvent{
		EventType:   AuditEventImportError,
		RunID:       runID,
		Success:     false,
		Message:     "Import failed",
		ErrorDetail: err.Error(),
	})
}

// LogUnionFind logs the outcome of a union-find run.
func (l *AuditLogger) LogUnionFind(ctx context.Context, runID, strategy string, duration time.Duration, setCount int64, err error) {
	event := &AuditEvent{
		EventType: AuditEventUnionFindComplete,
		RunID:     runID,
		Success:   err == nil,
		Duration:  duration,
		Message:   fmt.Sprintf("Union-find completed: %d sets", setCount),
		Details: map[string]any{
			"strategy":  strategy,
			"set_count": setCount,
		},
	}
	if err != nil {
		event.EventType = AuditEventUnionFindError
		event.Message = "Union-find failed"
		event.ErrorDetail = err.Error()
	}
	_ = l.Log(event)
}

// LogWorkflowStart logs a workflow start event.
func (l *AuditLogger) LogWorkflowStart(ctx context.Context, workflowID, direction string) {
	_ = l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowStart,
		WorkflowID: workflowID,
		Success:    true,
		Message:    fmt.Sprintf("Components workflow started: direction=%s", direction),
	})
}

// LogWorkflowEnd logs a workflow end event.
func (l *AuditLogger) LogWorkflowEnd(ctx context.Context, workflowID string, success bool, duration time.Duration, setCount int64) {
	_ = l.Log(&AuditEvent{
		EventType:  AuditEventWorkflowEnd,
		WorkflowID: workflowID,
		Success:    success,
		Duration:   duration,
		Message:    fmt.Sprintf("Components workflow completed: set_count=%d", setCount),
		Details: map[string]any{
			"set_count": setCount,
		},
	})
}

// Close closes the audit logger (if using a file).
func (l *AuditLogger) Close() error {
	if closer, ok := l.writer.(io.Closer); ok {
		if closer != os.Stdout && closer != os.Stderr {
			return closer.Close()
		}
	}
	return nil
}

// Global audit logger instance
var globalAuditLogger *AuditLogger
var auditOnce sync.Once

// InitGlobalAuditLogger initializes the global audit logger.
func InitGlobalAuditLogger(config *AuditConfig) error {
	var err error
	auditOnce.Do(func() {
		globalAuditLogger, err = NewAuditLogger(config)
	})
	return err
}

// Audit returns the global audit logger.
func Audit() *AuditLogger {
	if globalAuditLogger == nil {
		return &AuditLogger{enabled: false}
	}
	return globalAuditLogger
}
