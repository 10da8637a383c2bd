package tenantauth

import (
	"os"
	"strconv"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"
	"github.com/joho/godotenv"
)

// Default TTLs applied when the environment leaves them unset.
const (
	DefaultTokenTTL    = 24 * time.Hour
	DefaultMaxTokenTTL = 7 * 24 * time.Hour
)

// Config carries everything the auth core consumes from its
// environment. It is passed explicitly into constructors; there is no
// process-wide settings object.
type Config struct {
	// SigningSecret is the single HMAC key tokens are signed with.
	SigningSecret string
	// TokenTTL is the default session token lifetime.
	TokenTTL time.Duration
	// MaxTokenTTL is the longest lifetime any token can have; user
	// revocation markers live exactly this long.
	MaxTokenTTL time.Duration
	// ImpersonationTTL is the (short) ghost token lifetime.
	ImpersonationTTL time.Duration
	// RevocationTimeout bounds each side-store call.
	RevocationTimeout time.Duration
	// RevocationAddr is the side-store connection address, consumed by
	// whichever RevocationStore implementation the application wires.
	RevocationAddr string
	// TransitionMode and AllowLegacyFallback independently gate the
	// deprecated unsigned-header resolver; both must be true.
	TransitionMode      bool
	AllowLegacyFallback bool
}

// Validate checks the config is usable before the core is assembled.
func (c Config) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.SigningSecret, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.TokenTTL, validation.Required),
		validation.Field(&c.MaxTokenTTL, validation.Required),
		validation.Field(&c.ImpersonationTTL, validation.Required),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid auth configuration")
	}

	if c.TokenTTL > c.MaxTokenTTL {
		return goerrors.New("token TTL exceeds maximum token TTL", goerrors.CategoryValidation)
	}

	if c.ImpersonationTTL >= c.TokenTTL {
		return goerrors.New("impersonation TTL must be shorter than the session TTL", goerrors.CategoryValidation)
	}

	return nil
}

// ConfigFromEnv loads Config from the process environment, optionally
// reading dotenv files first. Missing dotenv files are ignored so the
// same code path serves development and production.
//
// Variables: AUTH_SIGNING_SECRET, AUTH_TOKEN_TTL, AUTH_MAX_TOKEN_TTL,
// AUTH_IMPERSONATION_TTL, AUTH_REVOCATION_TIMEOUT, AUTH_REVOCATION_ADDR,
// AUTH_TRANSITION_MODE, AUTH_ALLOW_LEGACY_FALLBACK.
func ConfigFromEnv(files ...string) (Config, error) {
	for _, file := range files {
		if _, err := os.Stat(file); err == nil {
			if err := godotenv.Load(file); err != nil {
				return Config{}, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to load env file")
			}
		}
	}

	cfg := Config{
		SigningSecret:       os.Getenv("AUTH_SIGNING_SECRET"),
		TokenTTL:            envDuration("AUTH_TOKEN_TTL", DefaultTokenTTL),
		MaxTokenTTL:         envDuration("AUTH_MAX_TOKEN_TTL", DefaultMaxTokenTTL),
		ImpersonationTTL:    envDuration("AUTH_IMPERSONATION_TTL", DefaultImpersonationTTL),
		RevocationTimeout:   envDuration("AUTH_REVOCATION_TIMEOUT", DefaultRevocationTimeout),
		RevocationAddr:      os.Getenv("AUTH_REVOCATION_ADDR"),
		TransitionMode:      envBool("AUTH_TRANSITION_MODE"),
		AllowLegacyFallback: envBool("AUTH_ALLOW_LEGACY_FALLBACK"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func envDuration(key string, def time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return def
	}

	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}

	return d
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
