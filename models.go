package tenantauth

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the system-of-record identity row. The auth core only reads
// users; account-management collaborators own every mutation except the
// login bookkeeping columns (login_attempts, login_attempt_at,
// loggedin_at).
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID             int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	TenantID       int64      `bun:"tenant_id,notnull" json:"tenant_id,omitempty"`
	Email          string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Role           Role       `bun:"role,notnull" json:"role,omitempty"`
	PasswordHash   string     `bun:"password_hash" json:"-"`
	Active         bool       `bun:"is_active" json:"is_active,omitempty"`
	LoginAttempts  int        `bun:"login_attempts" json:"login_attempts,omitempty"`
	LoginAttemptAt *time.Time `bun:"login_attempt_at" json:"login_attempt_at,omitempty"`
	LoggedInAt     *time.Time `bun:"loggedin_at" json:"loggedin_at,omitempty"`
	CreatedAt      *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Tenant is the tenant row backing tenant isolation. A user belongs to
// exactly one tenant at a time.
type Tenant struct {
	bun.BaseModel `bun:"table:tenants,alias:tnt"`

	ID        int64      `bun:"id,pk,autoincrement" json:"id,omitempty"`
	Slug      string     `bun:"slug,notnull,unique" json:"slug,omitempty"`
	Active    bool       `bun:"is_active" json:"is_active,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// RevocationEntry is an ephemeral side-store marker. It is only ever
// existence-checked, never read back as a row, and expires with its TTL.
// Hard deletes only: a revocation marker must not be soft-undeletable.
type RevocationEntry struct {
	bun.BaseModel `bun:"table:revocation_entries,alias:rev"`

	Key       string    `bun:"key,pk" json:"key"`
	ExpiresAt time.Time `bun:"expires_at,notnull" json:"expires_at"`
	CreatedAt time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
}

// AuditRecord is the persisted shape of an AuditEntry when the
// bun-backed sink is used.
type AuditRecord struct {
	bun.BaseModel `bun:"table:audit_records,alias:aud"`

	ID            uuid.UUID      `bun:"id,pk,type:uuid" json:"id"`
	ActorUserID   int64          `bun:"actor_user_id" json:"actor_user_id"`
	ActorEmail    string         `bun:"actor_email" json:"actor_email"`
	ActorTenantID int64          `bun:"actor_tenant_id" json:"actor_tenant_id"`
	Action        string         `bun:"action,notnull" json:"action"`
	Category      string         `bun:"category,notnull" json:"category"`
	TargetUserID  int64          `bun:"target_user_id" json:"target_user_id"`
	Details       map[string]any `bun:"details,type:jsonb" json:"details,omitempty"`
	CreatedAt     time.Time      `bun:"created_at,nullzero,default:current_timestamp" json:"created_at"`
}

// NormalizeEmail lowercases and trims an email so lookups and unique
// constraints agree on a canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CanAuthenticate reports whether the user record is eligible to log in
// or back a token: present, active, and holding a known role.
func (u *User) CanAuthenticate() bool {
	return u != nil && u.Active && u.Role.IsValid()
}
