package core

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// AuditAction represents the type of change recorded for a dataset.
type AuditAction string

const (
	ActionLoad         AuditAction = "load"
	ActionApply        AuditAction = "apply"
	ActionDeleteColumn AuditAction = "delete_column"
	ActionUpdateColumn AuditAction = "update_column"
	ActionReset        AuditAction = "reset"
	ActionPersist      AuditAction = "persist"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow      AuditSeverity = "low"
	SeverityMedium   AuditSeverity = "medium"
	SeverityHigh     AuditSeverity = "high"
	SeverityCritical AuditSeverity = "critical"
)

// DefaultMaxAuditEntries bounds the history kept per dataset.
const DefaultMaxAuditEntries = 500

// AuditEntry is one change applied to a dataset.
type AuditEntry struct {
	ID           string        `json:"id"`
	DatasetID    string        `json:"datasetId"`
	Action       AuditAction   `json:"action"`
	Severity     AuditSeverity `json:"severity"`
	ColumnName   string        `json:"columnName,omitempty"`
	Operation    OperationKind `json:"operation,omitempty"`
	Detail       string        `json:"detail,omitempty"`
	Warning      string        `json:"warning,omitempty"`
	RowsAffected int           `json:"rowsAffected"`
	FailedCells  int           `json:"failedCells,omitempty"`
	IPAddress    string        `json:"ipAddress,omitempty"`
	UserAgent    string        `json:"userAgent,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionLoad, ActionPersist:
		return SeverityHigh
	case ActionReset:
		return SeverityCritical
	case ActionUpdateColumn:
		return SeverityLow
	default:
		return SeverityMedium
	}
}

// auditLog keeps the most recent entries for one dataset. It relies on the
// owning session's lock.
type auditLog struct {
	entries []AuditEntry
	max     int
}

func newAuditLog(max int) *auditLog {
	if max <= 0 {
		max = DefaultMaxAuditEntries
	}
	return &auditLog{max: max}
}

// record fills in the id, severity, request metadata and time, then stores
// the entry, dropping the oldest once the log is full.
func (l *auditLog) record(ctx context.Context, e AuditEntry) AuditEntry {
	e.ID = uuid.NewString()
	e.Severity = determineSeverity(e.Action)
	e.IPAddress = GetIPAddressFromContext(ctx)
	e.UserAgent = GetUserAgentFromContext(ctx)
	e.CreatedAt = time.Now().UTC()

	if len(l.entries) >= l.max {
		copy(l.entries, l.entries[1:])
		l.entries = l.entries[:len(l.entries)-1]
	}
	l.entries = append(l.entries, e)
	return e
}

// list returns the entries newest first.
func (l *auditLog) list() []AuditEntry {
	out := make([]AuditEntry, len(l.entries))
	for i, e := range l.entries {
		out[len(l.entries)-1-i] = e
	}
	return out
}
