package tenantauth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// TokenCodec signs and validates session tokens with a single HMAC-SHA256
// key. Signature verification always completes before any claim is
// trusted or used to drive a lookup; that ordering is an invariant, not
// an optimization.
type TokenCodec struct {
	signingKey []byte
	ttl        time.Duration
	logger     Logger
}

// NewTokenCodec creates a codec with the server signing secret and the
// default session TTL applied to tokens encoded without an expiry.
func NewTokenCodec(signingKey []byte, ttl time.Duration) *TokenCodec {
	return &TokenCodec{
		signingKey: signingKey,
		ttl:        ttl,
		logger:     defLogger{},
	}
}

func (tc *TokenCodec) WithLogger(logger Logger) *TokenCodec {
	tc.logger = normalizeLogger(logger)
	return tc
}

// TTL returns the codec's default session TTL.
func (tc *TokenCodec) TTL() time.Duration {
	return tc.ttl
}

// Encode signs the claims with the default TTL.
func (tc *TokenCodec) Encode(claims *Claims) (string, error) {
	return tc.EncodeWithTTL(claims, tc.ttl)
}

// EncodeWithTTL signs the claims, stamping expiry from ttl and minting a
// unique jti when the caller did not set one. A role outside the closed
// set is refused before signing: the codec never issues a token it would
// itself reject.
func (tc *TokenCodec) EncodeWithTTL(claims *Claims, ttl time.Duration) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}

	if !claims.Role.IsValid() {
		return "", ErrInvalidRole
	}

	if ttl <= 0 {
		ttl = tc.ttl
	}

	if claims.Expiry == 0 {
		claims.Expiry = time.Now().Add(ttl).Unix()
	}

	if claims.TokenID == "" {
		claims.TokenID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(tc.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session token")
	}

	return signedString, nil
}

// Decode parses and validates a raw token, returning the claims or one
// of ErrTokenMalformed, ErrInvalidSignature, ErrTokenExpired,
// ErrInvalidRole.
func (tc *TokenCodec) Decode(raw string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(raw, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			tc.logger.Error("TokenCodec decode encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return tc.signingKey, nil
	})

	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
				WithTextCode(ErrTokenMalformed.TextCode)
		}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		tc.logger.Error("TokenCodec decode could not map validated claims")
		return nil, ErrTokenMalformed
	}

	if !claims.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	return claims, nil
}
