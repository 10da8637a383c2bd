package tenantauth

import (
	"context"
	"slices"
	"time"
)

// AuthContext is the resolved, request-local result of validating a
// token. It is the only artifact handed to downstream collaborators and
// is never persisted.
type AuthContext struct {
	UserID     int64
	Email      string
	TenantID   int64
	TenantSlug string
	Role       Role
	TokenID    string

	IsImpersonating        bool
	ImpersonatorUserID     int64
	ImpersonatorEmail      string
	ImpersonatorRole       Role
	ImpersonatorTenantID   int64
	ImpersonatorTenantSlug string
	ImpersonationReason    string
	ImpersonationStartedAt time.Time
}

// Actor returns the audit actor for this context: the real operator
// during impersonation, the user itself otherwise.
func (a *AuthContext) Actor() AuditActor {
	if a == nil {
		return AuditActor{}
	}

	if a.IsImpersonating {
		return AuditActor{
			UserID:   a.ImpersonatorUserID,
			Email:    a.ImpersonatorEmail,
			Role:     a.ImpersonatorRole,
			TenantID: a.ImpersonatorTenantID,
		}
	}

	return AuditActor{
		UserID:   a.UserID,
		Email:    a.Email,
		Role:     a.Role,
		TenantID: a.TenantID,
	}
}

// RequireRole fails with ErrForbidden unless the context's role is in
// the allowed set. It is a pure check and is never bypassed based on
// impersonation status: a ghost session has exactly the target's role.
func RequireRole(authCtx *AuthContext, roles ...Role) error {
	if authCtx == nil {
		return ErrForbidden
	}

	if slices.Contains(roles, authCtx.Role) {
		return nil
	}

	return ErrForbidden
}

var authCtxKey = &contextKey{"auth_context"}

type contextKey struct {
	name string
}

// WithContext sets the AuthContext in the given context
func WithContext(ctx context.Context, authCtx *AuthContext) context.Context {
	return context.WithValue(ctx, authCtxKey, authCtx)
}

// FromContext finds the AuthContext from the context.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	raw, ok := ctx.Value(authCtxKey).(*AuthContext)
	return raw, ok
}
