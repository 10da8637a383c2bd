package tenantauth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	auth "github.com/corelith/go-tenantauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevocationGuardTokenMarker(t *testing.T) {
	store := auth.NewMemoryRevocationStore()
	guard := auth.NewRevocationGuard(store, time.Hour)
	ctx := context.Background()

	claims := &auth.Claims{Subject: 10, TenantID: 3, TokenID: "jti-abc", Role: auth.RoleTenantUser}
	assert.False(t, guard.IsRevoked(ctx, claims))

	guard.RevokeToken(ctx, 3, "jti-abc", 0)
	assert.True(t, guard.IsRevoked(ctx, claims))

	// Same jti under another tenant is unaffected.
	other := &auth.Claims{Subject: 10, TenantID: 4, TokenID: "jti-abc", Role: auth.RoleTenantUser}
	assert.False(t, guard.IsRevoked(ctx, other))
}

func TestRevocationGuardUserMarkerCoversAllTokens(t *testing.T) {
	store := auth.NewMemoryRevocationStore()
	guard := auth.NewRevocationGuard(store, time.Hour)
	ctx := context.Background()

	guard.RevokeUser(ctx, 10, 3, 0)

	for _, jti := range []string{"jti-1", "jti-2", "jti-3"} {
		claims := &auth.Claims{Subject: 10, TenantID: 3, TokenID: jti, Role: auth.RoleTenantUser}
		assert.True(t, guard.IsRevoked(ctx, claims), "jti %s should be covered by the user marker", jti)
	}

	// A different user in the same tenant keeps its sessions.
	claims := &auth.Claims{Subject: 11, TenantID: 3, TokenID: "jti-9", Role: auth.RoleTenantUser}
	assert.False(t, guard.IsRevoked(ctx, claims))
}

func TestRevocationGuardRevokeUserIdempotent(t *testing.T) {
	store := auth.NewMemoryRevocationStore()
	guard := auth.NewRevocationGuard(store, time.Hour)
	ctx := context.Background()

	guard.RevokeUser(ctx, 10, 3, 0)
	guard.RevokeUser(ctx, 10, 3, 0)
	guard.RevokeUser(ctx, 10, 3, 0)

	claims := &auth.Claims{Subject: 10, TenantID: 3, TokenID: "jti-1", Role: auth.RoleTenantUser}
	assert.True(t, guard.IsRevoked(ctx, claims))
}

func TestRevocationGuardFailsOpen(t *testing.T) {
	logger := &captureLogger{}
	store := &failingRevocationStore{err: errors.New("connection refused")}
	guard := auth.NewRevocationGuard(store, time.Hour).WithLogger(logger)
	ctx := context.Background()

	claims := &auth.Claims{Subject: 10, TenantID: 3, TokenID: "jti-abc", Role: auth.RoleTenantUser}
	assert.False(t, guard.IsRevoked(ctx, claims), "store failure must read as not revoked")
	assert.GreaterOrEqual(t, logger.warnCount(), 1, "failing open must leave a warning in the logs")
}

func TestRevocationGuardWriteFailureSwallowed(t *testing.T) {
	logger := &captureLogger{}
	store := &failingRevocationStore{err: errors.New("connection refused")}
	guard := auth.NewRevocationGuard(store, time.Hour).WithLogger(logger)

	// Must not panic or propagate; deactivation flows depend on that.
	guard.RevokeUser(context.Background(), 10, 3, 0)
	guard.RevokeToken(context.Background(), 3, "jti-abc", 0)
	assert.Equal(t, 2, logger.warnCount())
}

func TestRevocationGuardNilStore(t *testing.T) {
	guard := auth.NewRevocationGuard(nil, time.Hour)
	claims := &auth.Claims{Subject: 10, TenantID: 3, TokenID: "jti-abc", Role: auth.RoleTenantUser}

	assert.False(t, guard.IsRevoked(context.Background(), claims))
	guard.RevokeUser(context.Background(), 10, 3, 0)
}

func TestMemoryRevocationStoreExpiry(t *testing.T) {
	store := auth.NewMemoryRevocationStore()
	ctx := context.Background()

	require.NoError(t, store.SetTTL(ctx, "k", 20*time.Millisecond))

	exists, err := store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	time.Sleep(40 * time.Millisecond)

	exists, err = store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.False(t, exists, "marker must lapse with its TTL")
}
