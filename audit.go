package tenantauth

import (
	"context"
	"time"
)

// Audit actions emitted by the auth core.
const (
	AuditActionLoginSuccess       = "auth.login.success"
	AuditActionLoginFailure       = "auth.login.failure"
	AuditActionImpersonationStart = "auth.impersonation.start"
	AuditActionImpersonationStop  = "auth.impersonation.stop"
	AuditActionUserRevoked        = "auth.revocation.user"
)

// Audit categories.
const (
	AuditCategoryAuth          = "authentication"
	AuditCategoryImpersonation = "impersonation"
	AuditCategoryRevocation    = "revocation"
)

// AuditActor identifies who performed an audited action. During
// impersonation this is always the real operator, never the assumed
// identity.
type AuditActor struct {
	UserID   int64
	Email    string
	Role     Role
	TenantID int64
}

// AuditEntry captures a single audited action.
type AuditEntry struct {
	Actor        AuditActor
	Action       string
	Category     string
	TargetUserID int64
	Details      map[string]any
	OccurredAt   time.Time
}

// AuditSink consumes audit entries. The surrounding application owns the
// sink; the auth core only emits through it.
type AuditSink interface {
	WriteAudit(ctx context.Context, entry AuditEntry) error
}

// AuditSinkFunc adapts a function to the AuditSink interface.
type AuditSinkFunc func(ctx context.Context, entry AuditEntry) error

// WriteAudit implements AuditSink.
func (f AuditSinkFunc) WriteAudit(ctx context.Context, entry AuditEntry) error {
	if f == nil {
		return nil
	}
	return f(ctx, entry)
}

type noopAuditSink struct{}

func (noopAuditSink) WriteAudit(context.Context, AuditEntry) error {
	return nil
}

func normalizeAuditSink(s AuditSink) AuditSink {
	if s == nil {
		return noopAuditSink{}
	}
	return s
}

// emitAudit writes an entry best-effort, stamping OccurredAt and logging
// sink failures instead of propagating them.
func emitAudit(ctx context.Context, sink AuditSink, logger Logger, entry AuditEntry) {
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}

	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = time.Now()
	}

	if err := normalizeAuditSink(sink).WriteAudit(ctx, entry); err != nil {
		normalizeLogger(logger).Warn("audit sink write error", "action", entry.Action, "error", err)
	}
}
