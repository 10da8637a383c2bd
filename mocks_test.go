package tenantauth_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	auth "github.com/corelith/go-tenantauth"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/require"
)

type memoryUserStore struct {
	mu        sync.Mutex
	byID      map[int64]*auth.User
	attempted []int64
	succeeded []int64
}

func newMemoryUserStore(users ...*auth.User) *memoryUserStore {
	s := &memoryUserStore{byID: map[int64]*auth.User{}}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *memoryUserStore) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.byID[id]
	if !ok {
		return nil, goerrors.New("user not found", goerrors.CategoryNotFound)
	}
	return user, nil
}

func (s *memoryUserStore) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, user := range s.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, goerrors.New("user not found", goerrors.CategoryNotFound)
}

func (s *memoryUserStore) TrackAttemptedLogin(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	user.LoginAttempts++
	user.LoginAttemptAt = &now
	s.attempted = append(s.attempted, user.ID)
	return nil
}

func (s *memoryUserStore) TrackSuccessfulLogin(ctx context.Context, user *auth.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	user.LoginAttempts = 0
	user.LoginAttemptAt = nil
	user.LoggedInAt = &now
	s.succeeded = append(s.succeeded, user.ID)
	return nil
}

type memoryTenantStore struct {
	mu   sync.Mutex
	byID map[int64]*auth.Tenant
}

func newMemoryTenantStore(tenants ...*auth.Tenant) *memoryTenantStore {
	s := &memoryTenantStore{byID: map[int64]*auth.Tenant{}}
	for _, t := range tenants {
		s.byID[t.ID] = t
	}
	return s
}

func (s *memoryTenantStore) GetByID(ctx context.Context, id int64) (*auth.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.byID[id]
	if !ok {
		return nil, goerrors.New("tenant not found", goerrors.CategoryNotFound)
	}
	return tenant, nil
}

// erroringTenantStore simulates a tenant backend outage: every lookup
// fails with an infrastructure error rather than a missing row.
type erroringTenantStore struct {
	err error
}

func (s *erroringTenantStore) GetByID(ctx context.Context, id int64) (*auth.Tenant, error) {
	return nil, s.err
}

// failingRevocationStore simulates an unreachable side store.
type failingRevocationStore struct {
	err error
}

func (s *failingRevocationStore) Exists(ctx context.Context, key string) (bool, error) {
	return false, s.err
}

func (s *failingRevocationStore) SetTTL(ctx context.Context, key string, ttl time.Duration) error {
	return s.err
}

type captureAuditSink struct {
	mu      sync.Mutex
	entries []auth.AuditEntry
}

func (s *captureAuditSink) WriteAudit(ctx context.Context, entry auth.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *captureAuditSink) byAction(action string) []auth.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []auth.AuditEntry
	for _, e := range s.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

type captureLogger struct {
	mu    sync.Mutex
	warns []string
	errs  []string
}

func (l *captureLogger) Debug(format string, args ...any) {}
func (l *captureLogger) Info(format string, args ...any)  {}

func (l *captureLogger) Warn(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns = append(l.warns, format)
}

func (l *captureLogger) Error(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs = append(l.errs, format)
}

func (l *captureLogger) warnCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.warns)
}

func testUser(id, tenantID int64, role auth.Role) *auth.User {
	return &auth.User{
		ID:       id,
		TenantID: tenantID,
		Email:    fmt.Sprintf("user%d@example.com", id),
		Role:     role,
		Active:   true,
	}
}

func testTenant(id int64, slug string) *auth.Tenant {
	return &auth.Tenant{
		ID:     id,
		Slug:   slug,
		Active: true,
	}
}

func testConfig() auth.Config {
	return auth.Config{
		SigningSecret:     "test-signing-secret-0123456789abcdef",
		TokenTTL:          24 * time.Hour,
		MaxTokenTTL:       7 * 24 * time.Hour,
		ImpersonationTTL:  30 * time.Minute,
		RevocationTimeout: time.Second,
	}
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	return hash
}
