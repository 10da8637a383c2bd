package tenantauth

import (
	"context"
	"strconv"

	"github.com/goliatone/go-router"
)

// WSTokenValidator implements go-router's WSTokenValidator interface on
// top of the TokenCodec so WebSocket upgrades authenticate with the same
// session tokens as plain HTTP requests.
type WSTokenValidator struct {
	codec *TokenCodec
}

func NewWSTokenValidator(codec *TokenCodec) *WSTokenValidator {
	return &WSTokenValidator{codec: codec}
}

// Validate decodes and verifies a raw token, returning claims in the
// shape go-router expects. Revocation is not consulted here; WebSocket
// sessions are bounded by the token TTL.
func (w *WSTokenValidator) Validate(tokenString string) (router.WSAuthClaims, error) {
	claims, err := w.codec.Decode(tokenString)
	if err != nil {
		return nil, err
	}
	return &wsClaimsAdapter{claims: claims}, nil
}

// wsClaimsAdapter adapts Claims to router.WSAuthClaims. Permission
// checks derive from the role hierarchy: tenant users read, tenant
// admins write, system admins do everything.
type wsClaimsAdapter struct {
	claims *Claims
}

func (w *wsClaimsAdapter) Subject() string {
	return strconv.FormatInt(w.claims.Subject, 10)
}

func (w *wsClaimsAdapter) UserID() string {
	return strconv.FormatInt(w.claims.Subject, 10)
}

func (w *wsClaimsAdapter) Role() string {
	return string(w.claims.Role)
}

func (w *wsClaimsAdapter) CanRead(resource string) bool {
	return w.claims.Role.IsAtLeast(RoleTenantUser)
}

func (w *wsClaimsAdapter) CanEdit(resource string) bool {
	return w.claims.Role.IsAtLeast(RoleTenantAdmin)
}

func (w *wsClaimsAdapter) CanCreate(resource string) bool {
	return w.claims.Role.IsAtLeast(RoleTenantAdmin)
}

func (w *wsClaimsAdapter) CanDelete(resource string) bool {
	return w.claims.Role.IsAtLeast(RoleTenantAdmin)
}

func (w *wsClaimsAdapter) HasRole(role string) bool {
	return string(w.claims.Role) == role
}

func (w *wsClaimsAdapter) IsAtLeast(minRole string) bool {
	return w.claims.Role.IsAtLeast(Role(minRole))
}

// NewWSAuthMiddleware builds a WebSocket authentication middleware wired
// to this authenticator's codec.
func (a *Authenticator) NewWSAuthMiddleware(config ...router.WSAuthConfig) router.WebSocketMiddleware {
	var cfg router.WSAuthConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	cfg.TokenValidator = NewWSTokenValidator(a.codec)

	return router.NewWSAuth(cfg)
}

// WSClaimsFromContext retrieves the decoded Claims from a WebSocket
// connection context, when the connection authenticated through
// NewWSAuthMiddleware.
func WSClaimsFromContext(ctx context.Context) (*Claims, bool) {
	wsClaims, ok := router.WSAuthClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}

	adapter, ok := wsClaims.(*wsClaimsAdapter)
	if !ok {
		return nil, false
	}

	return adapter.claims, true
}
