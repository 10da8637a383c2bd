package tenantauth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// MaxLoginAttempts is the maximum number of failed attempts a user gets
// inside the cool-down window.
var MaxLoginAttempts = 5

// CoolDownPeriod is the window in which failed attempts accumulate.
var CoolDownPeriod = 24 * time.Hour

// Authenticator is the facade the surrounding application consumes. It
// wires the codec, revocation guard, resolver, and impersonation
// manager behind the collaborator contract: Login, Resolve, RevokeUser,
// RevokeToken, StartImpersonation, StopImpersonation.
type Authenticator struct {
	users    UserStore
	tenants  TenantStore
	codec    *TokenCodec
	guard    *RevocationGuard
	resolver *PrincipalResolver
	imp      *ImpersonationManager
	legacy   *LegacyFallbackResolver
	sink     AuditSink
	logger   Logger
}

// NewAuthenticator assembles the auth core from its stores and config.
// cfg is expected to be validated; see Config.Validate.
func NewAuthenticator(users UserStore, tenants TenantStore, revocations RevocationStore, cfg Config) *Authenticator {
	codec := NewTokenCodec([]byte(cfg.SigningSecret), cfg.TokenTTL)
	guard := NewRevocationGuard(revocations, cfg.MaxTokenTTL).WithTimeout(cfg.RevocationTimeout)

	return &Authenticator{
		users:    users,
		tenants:  tenants,
		codec:    codec,
		guard:    guard,
		resolver: NewPrincipalResolver(users, tenants, guard),
		imp:      NewImpersonationManager(users, tenants, codec, cfg.ImpersonationTTL),
		legacy:   NewLegacyFallbackResolver(users, tenants, cfg.TransitionMode, cfg.AllowLegacyFallback),
		sink:     noopAuditSink{},
		logger:   defLogger{},
	}
}

func (a *Authenticator) WithLogger(logger Logger) *Authenticator {
	logger = normalizeLogger(logger)
	a.logger = logger
	a.codec.WithLogger(logger)
	a.guard.WithLogger(logger)
	a.resolver.WithLogger(logger)
	a.imp.WithLogger(logger)
	a.legacy.WithLogger(logger)
	return a
}

// WithAuditSink configures the sink all audit emission goes through.
func (a *Authenticator) WithAuditSink(sink AuditSink) *Authenticator {
	a.sink = normalizeAuditSink(sink)
	a.imp.WithAuditSink(a.sink)
	return a
}

// Codec exposes the token codec, mainly for tests and token mint jobs.
func (a *Authenticator) Codec() *TokenCodec {
	return a.codec
}

// Guard exposes the revocation guard.
func (a *Authenticator) Guard() *RevocationGuard {
	return a.guard
}

// Legacy exposes the deprecated unsigned-header resolver.
func (a *Authenticator) Legacy() *LegacyFallbackResolver {
	return a.legacy
}

// Login verifies credentials and returns a signed session token. Failed
// attempts are counted against the user and throttled inside the
// cool-down window; both outcomes are audited.
func (a *Authenticator) Login(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if goerrors.IsNotFound(err) {
			a.auditLoginFailure(ctx, email, ErrMismatchedHashAndPassword)
			return "", ErrMismatchedHashAndPassword
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user during login")
	}

	if !user.CanAuthenticate() {
		a.auditLoginFailure(ctx, email, ErrPrincipalNotFound)
		return "", ErrPrincipalNotFound
	}

	if user.LoginAttemptAt != nil && IsOutsideThresholdPeriod(*user.LoginAttemptAt, CoolDownPeriod) {
		user.LoginAttempts = 0
	}

	if user.LoginAttempts > MaxLoginAttempts {
		a.auditLoginFailure(ctx, email, ErrTooManyLoginAttempts)
		return "", ErrTooManyLoginAttempts
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		if err2 := a.users.TrackAttemptedLogin(ctx, user); err2 != nil {
			return "", goerrors.Wrap(err2, goerrors.CategoryInternal, "failed to track login attempt")
		}

		a.auditLoginFailure(ctx, email, err)
		return "", ErrMismatchedHashAndPassword
	}

	tenant, err := a.tenants.GetByID(ctx, user.TenantID)
	if err != nil || tenant == nil || !tenant.Active {
		a.auditLoginFailure(ctx, email, ErrTenantInactive)
		return "", ErrTenantInactive
	}

	if err := a.users.TrackSuccessfulLogin(ctx, user); err != nil {
		a.logger.Error("failed to track successful login", "error", err)
	}

	token, err := a.codec.Encode(&Claims{
		Subject:    user.ID,
		Email:      user.Email,
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		Role:       user.Role,
	})
	if err != nil {
		return "", err
	}

	emitAudit(ctx, a.sink, a.logger, AuditEntry{
		Actor: AuditActor{
			UserID:   user.ID,
			Email:    user.Email,
			Role:     user.Role,
			TenantID: user.TenantID,
		},
		Action:   AuditActionLoginSuccess,
		Category: AuditCategoryAuth,
	})

	return token, nil
}

// Resolve runs the full validation chain for a raw token: decode and
// verify the signature, check revocation, load the principal, and hand
// back the AuthContext.
func (a *Authenticator) Resolve(ctx context.Context, rawToken string) (*AuthContext, error) {
	claims, err := a.codec.Decode(rawToken)
	if err != nil {
		return nil, err
	}

	return a.resolver.Resolve(ctx, claims)
}

// RevokeUser invalidates every outstanding token for a user until the
// maximum token lifetime has elapsed. Best effort: the caller's
// operation (for example account deactivation) must succeed even when
// the side store is down.
func (a *Authenticator) RevokeUser(ctx context.Context, userID, tenantID int64) {
	a.guard.RevokeUser(ctx, userID, tenantID, 0)

	emitAudit(ctx, a.sink, a.logger, AuditEntry{
		Action:       AuditActionUserRevoked,
		Category:     AuditCategoryRevocation,
		TargetUserID: userID,
		Details: map[string]any{
			"tenant_id": tenantID,
		},
	})
}

// RevokeToken invalidates a single token by its jti.
func (a *Authenticator) RevokeToken(ctx context.Context, tenantID int64, tokenID string) {
	a.guard.RevokeToken(ctx, tenantID, tokenID, 0)
}

// StartImpersonation issues a ghost token for the target under the
// acting operator's identity. See ImpersonationManager.Start.
func (a *Authenticator) StartImpersonation(ctx context.Context, actor *AuthContext, targetUserID int64, reason string) (string, error) {
	return a.imp.Start(ctx, actor, targetUserID, reason)
}

// StopImpersonation ends a ghost session and returns a fresh token for
// the original actor. See ImpersonationManager.Stop.
func (a *Authenticator) StopImpersonation(ctx context.Context, current *AuthContext) (string, error) {
	return a.imp.Stop(ctx, current)
}

func (a *Authenticator) auditLoginFailure(ctx context.Context, email string, cause error) {
	emitAudit(ctx, a.sink, a.logger, AuditEntry{
		Action:   AuditActionLoginFailure,
		Category: AuditCategoryAuth,
		Details: map[string]any{
			"email": email,
			"error": cause.Error(),
		},
	})
}
