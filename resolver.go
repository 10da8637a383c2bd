package tenantauth

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
)

// PrincipalResolver turns validated claims into an AuthContext backed by
// the system of record. It runs after TokenCodec.Decode; it never sees
// unverified input.
type PrincipalResolver struct {
	users   UserStore
	tenants TenantStore
	guard   *RevocationGuard
	logger  Logger
}

func NewPrincipalResolver(users UserStore, tenants TenantStore, guard *RevocationGuard) *PrincipalResolver {
	return &PrincipalResolver{
		users:   users,
		tenants: tenants,
		guard:   guard,
		logger:  defLogger{},
	}
}

func (r *PrincipalResolver) WithLogger(logger Logger) *PrincipalResolver {
	r.logger = normalizeLogger(logger)
	return r
}

// Resolve checks revocation, loads the user and tenant behind the
// claims, re-validates the impersonation actor when present, and
// assembles the AuthContext. The tenant on the current user record is
// authoritative, not the tenant embedded in the token, so a user moved
// between tenants never resolves against stale tenant state.
func (r *PrincipalResolver) Resolve(ctx context.Context, claims *Claims) (*AuthContext, error) {
	if claims == nil {
		return nil, ErrTokenMalformed
	}

	if r.guard.IsRevoked(ctx, claims) {
		return nil, ErrTokenRevoked
	}

	user, err := r.loadActiveUser(ctx, claims.Subject)
	if err != nil {
		return nil, err
	}

	tenant, err := r.loadActiveTenant(ctx, user.TenantID)
	if err != nil {
		return nil, err
	}

	authCtx := &AuthContext{
		UserID:     user.ID,
		Email:      user.Email,
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		Role:       user.Role,
		TokenID:    claims.TokenID,
	}

	if claims.IsImpersonating() {
		if err := r.applyImpersonation(ctx, authCtx, claims.Impersonation); err != nil {
			return nil, err
		}
	}

	return authCtx, nil
}

// applyImpersonation validates the claimed actor and mirrors the actor
// fields onto the AuthContext. Any actor-validation failure rejects the
// entire resolution; the token is never silently downgraded to a
// non-impersonating session.
func (r *PrincipalResolver) applyImpersonation(ctx context.Context, authCtx *AuthContext, imp *ImpersonationClaim) error {
	actor, err := r.loadActiveUser(ctx, imp.ActorUserID)
	if err != nil {
		r.logger.Warn("impersonation actor no longer resolves", "actor_user_id", imp.ActorUserID)
		return ErrForbidden
	}

	if actor.Role != RoleSystemAdmin {
		r.logger.Warn("impersonation actor lost system_admin role", "actor_user_id", actor.ID)
		return ErrForbidden
	}

	if _, err := r.loadActiveTenant(ctx, actor.TenantID); err != nil {
		r.logger.Warn("impersonation actor tenant inactive", "actor_user_id", actor.ID, "tenant_id", actor.TenantID)
		return ErrForbidden
	}

	authCtx.IsImpersonating = true
	authCtx.ImpersonatorUserID = actor.ID
	authCtx.ImpersonatorEmail = actor.Email
	authCtx.ImpersonatorRole = actor.Role
	authCtx.ImpersonatorTenantID = imp.ActorTenantID
	authCtx.ImpersonatorTenantSlug = imp.ActorTenantSlug
	authCtx.ImpersonationReason = imp.Reason
	authCtx.ImpersonationStartedAt = startedAtTime(imp.StartedAt)

	return nil
}

func (r *PrincipalResolver) loadActiveUser(ctx context.Context, id int64) (*User, error) {
	user, err := r.users.GetByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrPrincipalNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if !user.CanAuthenticate() {
		return nil, ErrPrincipalNotFound
	}

	return user, nil
}

func (r *PrincipalResolver) loadActiveTenant(ctx context.Context, id int64) (*Tenant, error) {
	tenant, err := r.tenants.GetByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrTenantInactive
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load tenant")
	}

	if tenant == nil || !tenant.Active {
		return nil, ErrTenantInactive
	}

	return tenant, nil
}
