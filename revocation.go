package tenantauth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// DefaultRevocationTimeout bounds every side-store call so a slow store
// cannot stall request latency.
const DefaultRevocationTimeout = 2 * time.Second

// RevocationStore is the capability the guard needs from a TTL-capable
// side store. Implementations must be safe for concurrent use; no
// cross-key ordering is assumed.
type RevocationStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	SetTTL(ctx context.Context, key string, ttl time.Duration) error
}

func tokenRevocationKey(tenantID int64, tokenID string) string {
	return fmt.Sprintf("revoked:tenant:%d:jti:%s", tenantID, tokenID)
}

func userRevocationKey(tenantID, userID int64) string {
	return fmt.Sprintf("revoked:tenant:%d:user:%d", tenantID, userID)
}

// RevocationGuard checks and writes revocation markers. The side store
// is an additional line of defense on top of signature and expiry, so
// the guard fails open when the store errors: the failure is logged at
// warning level and the token is treated as not revoked. This is the
// single intentional silent-failure path in the package.
type RevocationGuard struct {
	store   RevocationStore
	maxTTL  time.Duration
	timeout time.Duration
	logger  Logger
}

// NewRevocationGuard creates a guard. maxTTL must equal the maximum
// token lifetime so user-level markers outlive every token issued before
// the revocation.
func NewRevocationGuard(store RevocationStore, maxTTL time.Duration) *RevocationGuard {
	return &RevocationGuard{
		store:   store,
		maxTTL:  maxTTL,
		timeout: DefaultRevocationTimeout,
		logger:  defLogger{},
	}
}

func (g *RevocationGuard) WithLogger(logger Logger) *RevocationGuard {
	g.logger = normalizeLogger(logger)
	return g
}

// WithTimeout overrides the per-call side-store timeout.
func (g *RevocationGuard) WithTimeout(timeout time.Duration) *RevocationGuard {
	if timeout > 0 {
		g.timeout = timeout
	}
	return g
}

// IsRevoked reports whether a marker exists for the token's jti or its
// user. A nil store or a store error reads as not revoked.
func (g *RevocationGuard) IsRevoked(ctx context.Context, claims *Claims) bool {
	if g == nil || g.store == nil || claims == nil {
		return false
	}

	keys := []string{
		tokenRevocationKey(claims.TenantID, claims.TokenID),
		userRevocationKey(claims.TenantID, claims.Subject),
	}

	for _, key := range keys {
		callCtx, cancel := context.WithTimeout(ctx, g.timeout)
		exists, err := g.store.Exists(callCtx, key)
		cancel()

		if err != nil {
			g.logger.Warn("revocation store unreachable, failing open", "key", key, "error", err)
			return false
		}

		if exists {
			return true
		}
	}

	return false
}

// RevokeUser writes a user-level marker invalidating every outstanding
// token for the user. Best effort: a store failure is logged and
// swallowed so operations like account deactivation still succeed; the
// tokens expire on their own TTL regardless. ttl <= 0 uses the guard's
// maximum token lifetime. Repeating the call refreshes the marker, so
// the operation is idempotent.
func (g *RevocationGuard) RevokeUser(ctx context.Context, userID, tenantID int64, ttl time.Duration) {
	if g == nil || g.store == nil {
		return
	}

	if ttl <= 0 {
		ttl = g.maxTTL
	}

	key := userRevocationKey(tenantID, userID)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.store.SetTTL(callCtx, key, ttl); err != nil {
		g.logger.Warn("failed to write user revocation marker", "key", key, "error", err)
	}
}

// RevokeToken writes a marker for a single token by jti. Best effort,
// same semantics as RevokeUser.
func (g *RevocationGuard) RevokeToken(ctx context.Context, tenantID int64, tokenID string, ttl time.Duration) {
	if g == nil || g.store == nil || tokenID == "" {
		return
	}

	if ttl <= 0 {
		ttl = g.maxTTL
	}

	key := tokenRevocationKey(tenantID, tokenID)

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := g.store.SetTTL(callCtx, key, ttl); err != nil {
		g.logger.Warn("failed to write token revocation marker", "key", key, "error", err)
	}
}

// MemoryRevocationStore is a process-local RevocationStore for
// development and tests.
type MemoryRevocationStore struct {
	mu      sync.RWMutex
	entries map[string]time.Time
}

func NewMemoryRevocationStore() *MemoryRevocationStore {
	return &MemoryRevocationStore{
		entries: make(map[string]time.Time),
	}
}

func (s *MemoryRevocationStore) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	s.mu.RLock()
	expiresAt, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return false, nil
	}

	if time.Now().After(expiresAt) {
		s.mu.Lock()
		delete(s.entries, key)
		s.mu.Unlock()
		return false, nil
	}

	return true, nil
}

func (s *MemoryRevocationStore) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[key] = time.Now().Add(ttl)
	s.mu.Unlock()
	return nil
}
