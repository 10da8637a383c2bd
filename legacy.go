package tenantauth

import (
	"context"
	"strconv"
)

// Header names consumed by the legacy fallback path. These are plain,
// unsigned request headers; nothing about them is authenticated.
const (
	LegacyHeaderUserID   = "X-Auth-User-Id"
	LegacyHeaderTenantID = "X-Auth-Tenant-Id"
)

// LegacyFallbackResolver is a deprecated compatibility shim that derives
// an AuthContext from unsigned caller-supplied headers during a
// migration window. It trusts its input by construction, so it is gated
// behind two independent flags and must never be merged into the signed
// token flow.
//
// Deprecated: remove once the migration window closes.
type LegacyFallbackResolver struct {
	users         UserStore
	tenants       TenantStore
	transition    bool
	allowFallback bool
	logger        Logger
}

func NewLegacyFallbackResolver(users UserStore, tenants TenantStore, transitionMode, allowFallback bool) *LegacyFallbackResolver {
	return &LegacyFallbackResolver{
		users:         users,
		tenants:       tenants,
		transition:    transitionMode,
		allowFallback: allowFallback,
		logger:        defLogger{},
	}
}

func (l *LegacyFallbackResolver) WithLogger(logger Logger) *LegacyFallbackResolver {
	l.logger = normalizeLogger(logger)
	return l
}

// Enabled reports whether both migration flags are set. Either flag
// alone keeps the path closed.
func (l *LegacyFallbackResolver) Enabled() bool {
	return l != nil && l.transition && l.allowFallback
}

// Resolve builds an AuthContext from the legacy headers. The user and
// tenant still have to exist and be active in the system of record;
// only the authentication step is skipped. Every use logs a warning so
// remaining legacy callers are visible in the logs.
func (l *LegacyFallbackResolver) Resolve(ctx context.Context, userIDHeader, tenantIDHeader string) (*AuthContext, error) {
	if !l.Enabled() {
		return nil, ErrLegacyFallbackDisabled
	}

	userID, err := strconv.ParseInt(userIDHeader, 10, 64)
	if err != nil || userID <= 0 {
		return nil, ErrPrincipalNotFound
	}

	user, err := l.users.GetByID(ctx, userID)
	if err != nil || !user.CanAuthenticate() {
		return nil, ErrPrincipalNotFound
	}

	if tenantIDHeader != "" {
		claimed, err := strconv.ParseInt(tenantIDHeader, 10, 64)
		if err != nil || claimed != user.TenantID {
			return nil, ErrTenantInactive
		}
	}

	tenant, err := l.tenants.GetByID(ctx, user.TenantID)
	if err != nil || tenant == nil || !tenant.Active {
		return nil, ErrTenantInactive
	}

	l.logger.Warn("legacy unsigned-header fallback used",
		"user_id", user.ID,
		"tenant_id", tenant.ID,
	)

	return &AuthContext{
		UserID:     user.ID,
		Email:      user.Email,
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		Role:       user.Role,
	}, nil
}
