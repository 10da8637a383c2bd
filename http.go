package tenantauth

import (
	"crypto/rand"
	"encoding/hex"
	"io"
	"net/http"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	// DefaultSessionCookieName holds the signed session token;
	// HTTP-only, secure, same-site.
	DefaultSessionCookieName = "auth_session"
	// DefaultCSRFCookieName is the companion token browser clients echo
	// back in a header; deliberately not HTTP-only so scripts can read it.
	DefaultCSRFCookieName = "csrf_token"
	// DefaultContextKey is where the middleware stores the AuthContext
	// in router locals.
	DefaultContextKey = "auth"

	bearerScheme    = "Bearer"
	csrfTokenLength = 32
)

// HTTPAuthenticator adapts the Authenticator to an HTTP surface: bearer
// and cookie token extraction, session + CSRF cookie issuance, and a
// middleware running the full validation chain.
type HTTPAuthenticator struct {
	auth         *Authenticator
	cookieName   string
	csrfName     string
	contextKey   string
	cookieTTL    time.Duration
	logger       Logger
	ErrorHandler func(c router.Context, err error) error
}

func NewHTTPAuthenticator(auth *Authenticator, cfg Config) *HTTPAuthenticator {
	cookieTTL := cfg.TokenTTL
	if cookieTTL <= 0 {
		cookieTTL = DefaultTokenTTL
	}

	h := &HTTPAuthenticator{
		auth:       auth,
		cookieName: DefaultSessionCookieName,
		csrfName:   DefaultCSRFCookieName,
		contextKey: DefaultContextKey,
		cookieTTL:  cookieTTL,
		logger:     defLogger{},
	}

	h.ErrorHandler = h.defaultErrorHandler

	return h
}

func (h *HTTPAuthenticator) WithLogger(logger Logger) *HTTPAuthenticator {
	h.logger = normalizeLogger(logger)
	return h
}

// Protected returns middleware that resolves the request's token into an
// AuthContext, storing it in router locals under the context key and in
// the request context. With optional set, unauthenticated requests
// proceed without an AuthContext instead of being rejected.
func (h *HTTPAuthenticator) Protected(optional bool) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			authCtx, err := h.resolveRequest(c)
			if err != nil {
				if optional {
					h.logger.Debug("optional auth failed, proceeding", "error", err)
					return c.Next()
				}
				return h.ErrorHandler(c, err)
			}

			c.Locals(h.contextKey, authCtx)
			c.SetContext(WithContext(c.Context(), authCtx))

			return c.Next()
		}
	}
}

// RequireRoles wraps Protected with a role check; requests resolving to
// a role outside the allowed set are rejected with ErrForbidden.
func (h *HTTPAuthenticator) RequireRoles(roles ...Role) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			authCtx, err := h.resolveRequest(c)
			if err != nil {
				return h.ErrorHandler(c, err)
			}

			if err := RequireRole(authCtx, roles...); err != nil {
				return h.ErrorHandler(c, err)
			}

			c.Locals(h.contextKey, authCtx)
			c.SetContext(WithContext(c.Context(), authCtx))

			return c.Next()
		}
	}
}

// resolveRequest extracts the raw token and runs the validation chain.
// The legacy unsigned-header shim is consulted only when no token is
// present at all and both migration flags are on; it never competes
// with a presented token.
func (h *HTTPAuthenticator) resolveRequest(c router.Context) (*AuthContext, error) {
	raw := h.tokenFromRequest(c)

	if raw == "" {
		if h.auth.Legacy().Enabled() {
			return h.auth.Legacy().Resolve(
				c.Context(),
				c.Header(LegacyHeaderUserID),
				c.Header(LegacyHeaderTenantID),
			)
		}
		return nil, ErrTokenMalformed
	}

	return h.auth.Resolve(c.Context(), raw)
}

func (h *HTTPAuthenticator) tokenFromRequest(c router.Context) string {
	header := c.Header(router.HeaderAuthorization)
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], bearerScheme) {
			return strings.TrimSpace(parts[1])
		}
	}

	return c.Cookies(h.cookieName)
}

// Login verifies credentials and, on success, sets the HTTP-only session
// cookie plus the companion CSRF cookie.
func (h *HTTPAuthenticator) Login(c router.Context, email, password string) error {
	token, err := h.auth.Login(c.Context(), email, password)
	if err != nil {
		h.logger.Error("login error", "error", err)
		return h.ErrorHandler(c, err)
	}

	if err := h.setSessionCookies(c, token); err != nil {
		return h.ErrorHandler(c, err)
	}

	return nil
}

// Logout revokes the presented token by jti and clears both cookies.
func (h *HTTPAuthenticator) Logout(c router.Context) {
	if authCtx, ok := GetRouterAuthContext(c, h.contextKey); ok && authCtx.TokenID != "" {
		h.auth.RevokeToken(c.Context(), authCtx.TenantID, authCtx.TokenID)
	}

	h.cookieDel(c, h.cookieName, true)
	h.cookieDel(c, h.csrfName, false)
}

// SetSessionToken installs a freshly issued token (for example after an
// impersonation transition) on the response cookies.
func (h *HTTPAuthenticator) SetSessionToken(c router.Context, token string) error {
	return h.setSessionCookies(c, token)
}

func (h *HTTPAuthenticator) setSessionCookies(c router.Context, token string) error {
	expires := time.Now().Add(h.cookieTTL)

	c.Cookie(&router.Cookie{
		Name:     h.cookieName,
		Value:    token,
		Expires:  expires,
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	csrfToken, err := generateCSRFToken()
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate CSRF token")
	}

	c.Cookie(&router.Cookie{
		Name:     h.csrfName,
		Value:    csrfToken,
		Expires:  expires,
		HTTPOnly: false,
		Secure:   true,
		SameSite: "Lax",
	})

	return nil
}

func (h *HTTPAuthenticator) cookieDel(c router.Context, name string, httpOnly bool) {
	c.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: httpOnly,
		Secure:   true,
		SameSite: "Lax",
	})
}

// defaultErrorHandler maps the error taxonomy onto HTTP statuses. All
// token failures present the same body; see UserFacingMessage.
func (h *HTTPAuthenticator) defaultErrorHandler(c router.Context, err error) error {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		richErr = goerrors.Wrap(err, goerrors.CategoryInternal, "An unexpected server error occurred")
	}

	status := http.StatusInternalServerError
	switch richErr.Category {
	case goerrors.CategoryAuth:
		status = http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		status = http.StatusForbidden
	case goerrors.CategoryConflict:
		status = http.StatusConflict
	case goerrors.CategoryValidation:
		status = http.StatusUnprocessableEntity
	case goerrors.CategoryRateLimit:
		status = http.StatusTooManyRequests
	}

	return c.JSON(status, map[string]any{
		"error":     UserFacingMessage(richErr),
		"text_code": richErr.TextCode,
	})
}

// GetRouterAuthContext extracts the AuthContext from the router context.
func GetRouterAuthContext(c router.Context, key string) (*AuthContext, bool) {
	if key == "" {
		key = DefaultContextKey
	}

	raw := c.Locals(key)
	if raw == nil {
		return nil, false
	}

	authCtx, ok := raw.(*AuthContext)
	return authCtx, ok
}

func generateCSRFToken() (string, error) {
	bytes := make([]byte, csrfTokenLength)
	if _, err := io.ReadFull(rand.Reader, bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
