package tenantauth

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
)

// MinImpersonationReasonLength is the minimum length of the
// human-entered reason required to start a ghost session.
const MinImpersonationReasonLength = 10

// DefaultImpersonationTTL bounds the blast radius of a leaked ghost
// token; it is deliberately shorter than a normal session.
const DefaultImpersonationTTL = 30 * time.Minute

// ImpersonationManager issues and terminates ghost tokens. The state
// machine is two-state: not-impersonating -> impersonating -> back.
// There is no nesting; Start from an already-impersonating context is a
// conflict, as is Stop from a plain session.
type ImpersonationManager struct {
	users   UserStore
	tenants TenantStore
	codec   *TokenCodec
	ttl     time.Duration
	sink    AuditSink
	logger  Logger
}

func NewImpersonationManager(users UserStore, tenants TenantStore, codec *TokenCodec, ttl time.Duration) *ImpersonationManager {
	if ttl <= 0 {
		ttl = DefaultImpersonationTTL
	}

	return &ImpersonationManager{
		users:   users,
		tenants: tenants,
		codec:   codec,
		ttl:     ttl,
		sink:    noopAuditSink{},
		logger:  defLogger{},
	}
}

func (m *ImpersonationManager) WithAuditSink(sink AuditSink) *ImpersonationManager {
	m.sink = normalizeAuditSink(sink)
	return m
}

func (m *ImpersonationManager) WithLogger(logger Logger) *ImpersonationManager {
	m.logger = normalizeLogger(logger)
	return m
}

// Start issues a ghost token carrying the target's identity as subject
// and an ImpersonationClaim recording the actor. Preconditions, in
// order: the actor is a system admin and not already impersonating, a
// reason of at least MinImpersonationReasonLength is given, the target
// is not the actor, exists, is active, is not itself a system admin,
// and belongs to an active tenant. Any violation returns a typed error
// and issues no token.
func (m *ImpersonationManager) Start(ctx context.Context, actor *AuthContext, targetUserID int64, reason string) (string, error) {
	if actor == nil || actor.Role != RoleSystemAdmin {
		return "", ErrForbidden
	}

	if actor.IsImpersonating {
		return "", ErrImpersonationConflict
	}

	if err := validation.Validate(reason,
		validation.Required,
		validation.Length(MinImpersonationReasonLength, 0),
	); err != nil {
		return "", ErrImpersonationReasonRequired
	}

	if targetUserID == actor.UserID {
		return "", ErrInvalidImpersonationTarget
	}

	target, err := m.users.GetByID(ctx, targetUserID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrInvalidImpersonationTarget
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load impersonation target")
	}

	if !target.CanAuthenticate() {
		return "", ErrInvalidImpersonationTarget
	}

	if target.Role == RoleSystemAdmin {
		return "", ErrForbidden
	}

	tenant, err := m.tenants.GetByID(ctx, target.TenantID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrInvalidImpersonationTarget
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load impersonation target tenant")
	}
	if tenant == nil || !tenant.Active {
		return "", ErrInvalidImpersonationTarget
	}

	now := time.Now()
	claims := &Claims{
		Subject:    target.ID,
		Email:      target.Email,
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		Role:       target.Role,
		Impersonation: &ImpersonationClaim{
			Active:          true,
			ActorUserID:     actor.UserID,
			ActorEmail:      actor.Email,
			ActorRole:       actor.Role,
			ActorTenantID:   actor.TenantID,
			ActorTenantSlug: actor.TenantSlug,
			Reason:          reason,
			StartedAt:       now.Unix(),
		},
	}

	token, err := m.codec.EncodeWithTTL(claims, m.ttl)
	if err != nil {
		return "", err
	}

	emitAudit(ctx, m.sink, m.logger, AuditEntry{
		Actor:        actor.Actor(),
		Action:       AuditActionImpersonationStart,
		Category:     AuditCategoryImpersonation,
		TargetUserID: target.ID,
		Details: map[string]any{
			"reason":        reason,
			"target_email":  target.Email,
			"target_tenant": tenant.Slug,
		},
		OccurredAt: now,
	})

	return token, nil
}

// Stop terminates a ghost session and issues a fresh, non-impersonating
// token for the original actor with the normal session TTL. The actor
// must still resolve to an active system admin in an active tenant.
func (m *ImpersonationManager) Stop(ctx context.Context, current *AuthContext) (string, error) {
	if current == nil || !current.IsImpersonating {
		return "", ErrImpersonationConflict
	}

	actor, err := m.users.GetByID(ctx, current.ImpersonatorUserID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrForbidden
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load impersonation actor")
	}

	if !actor.CanAuthenticate() || actor.Role != RoleSystemAdmin {
		return "", ErrForbidden
	}

	tenant, err := m.tenants.GetByID(ctx, actor.TenantID)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrForbidden
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load impersonation actor tenant")
	}
	if tenant == nil || !tenant.Active {
		return "", ErrForbidden
	}

	claims := &Claims{
		Subject:    actor.ID,
		Email:      actor.Email,
		TenantID:   tenant.ID,
		TenantSlug: tenant.Slug,
		Role:       actor.Role,
	}

	token, err := m.codec.Encode(claims)
	if err != nil {
		return "", err
	}

	emitAudit(ctx, m.sink, m.logger, AuditEntry{
		Actor: AuditActor{
			UserID:   actor.ID,
			Email:    actor.Email,
			Role:     actor.Role,
			TenantID: actor.TenantID,
		},
		Action:       AuditActionImpersonationStop,
		Category:     AuditCategoryImpersonation,
		TargetUserID: current.UserID,
		Details: map[string]any{
			"target_email": current.Email,
		},
	})

	return token, nil
}

func startedAtTime(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
