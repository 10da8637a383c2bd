package tenantauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ImpersonationClaim is embedded in Claims while a ghost session is
// active. It records the real actor behind the request; the actor is
// re-validated against the system of record on every resolution.
type ImpersonationClaim struct {
	Active          bool   `json:"active"`
	ActorUserID     int64  `json:"actor_user_id"`
	ActorEmail      string `json:"actor_email"`
	ActorRole       Role   `json:"actor_role"`
	ActorTenantID   int64  `json:"actor_tenant_id"`
	ActorTenantSlug string `json:"actor_tenant_slug"`
	Reason          string `json:"reason"`
	StartedAt       int64  `json:"started_at"`
}

// Claims is the signed token payload. Field tags follow the wire claim
// set: sub, email, tenant_id, tenant_slug, role, exp, jti, imp.
type Claims struct {
	Subject       int64               `json:"sub"`
	Email         string              `json:"email"`
	TenantID      int64               `json:"tenant_id"`
	TenantSlug    string              `json:"tenant_slug"`
	Role          Role                `json:"role"`
	Expiry        int64               `json:"exp"`
	TokenID       string              `json:"jti"`
	Impersonation *ImpersonationClaim `json:"imp,omitempty"`
}

// Verify interface compliance
var _ jwt.Claims = (*Claims)(nil)

// GetExpirationTime implements jwt.Claims so the parser enforces expiry.
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.Expiry == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(c.Expiry, 0)), nil
}

// GetIssuedAt implements jwt.Claims. Issuance time is not carried on the wire.
func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetNotBefore implements jwt.Claims.
func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims.
func (c *Claims) GetIssuer() (string, error) {
	return "", nil
}

// GetSubject implements jwt.Claims.
func (c *Claims) GetSubject() (string, error) {
	return "", nil
}

// GetAudience implements jwt.Claims.
func (c *Claims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}

// Expires returns the expiry as a time.Time.
func (c *Claims) Expires() time.Time {
	return time.Unix(c.Expiry, 0)
}

// IsImpersonating reports whether the token carries an active
// impersonation claim.
func (c *Claims) IsImpersonating() bool {
	return c.Impersonation != nil && c.Impersonation.Active
}
