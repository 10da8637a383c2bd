package tenantauth_test

import (
	"testing"
	"time"

	auth "github.com/corelith/go-tenantauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *auth.Config)
		wantErr bool
	}{
		{"valid", func(cfg *auth.Config) {}, false},
		{"missing secret", func(cfg *auth.Config) { cfg.SigningSecret = "" }, true},
		{"short secret", func(cfg *auth.Config) { cfg.SigningSecret = "too-short" }, true},
		{"zero token TTL", func(cfg *auth.Config) { cfg.TokenTTL = 0 }, true},
		{"token TTL above max", func(cfg *auth.Config) { cfg.TokenTTL = 8 * 24 * time.Hour }, true},
		{"impersonation TTL not shorter", func(cfg *auth.Config) { cfg.ImpersonationTTL = cfg.TokenTTL }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("AUTH_SIGNING_SECRET", "env-signing-secret-0123456789abcdef")
	t.Setenv("AUTH_TOKEN_TTL", "12h")
	t.Setenv("AUTH_MAX_TOKEN_TTL", "72h")
	t.Setenv("AUTH_IMPERSONATION_TTL", "15m")
	t.Setenv("AUTH_TRANSITION_MODE", "true")
	t.Setenv("AUTH_ALLOW_LEGACY_FALLBACK", "false")

	cfg, err := auth.ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "env-signing-secret-0123456789abcdef", cfg.SigningSecret)
	assert.Equal(t, 12*time.Hour, cfg.TokenTTL)
	assert.Equal(t, 72*time.Hour, cfg.MaxTokenTTL)
	assert.Equal(t, 15*time.Minute, cfg.ImpersonationTTL)
	assert.True(t, cfg.TransitionMode)
	assert.False(t, cfg.AllowLegacyFallback)
}

func TestConfigFromEnvDefaults(t *testing.T) {
	t.Setenv("AUTH_SIGNING_SECRET", "env-signing-secret-0123456789abcdef")
	t.Setenv("AUTH_TOKEN_TTL", "")
	t.Setenv("AUTH_MAX_TOKEN_TTL", "")
	t.Setenv("AUTH_IMPERSONATION_TTL", "")
	t.Setenv("AUTH_REVOCATION_TIMEOUT", "")

	cfg, err := auth.ConfigFromEnv()
	require.NoError(t, err)

	assert.Equal(t, auth.DefaultTokenTTL, cfg.TokenTTL)
	assert.Equal(t, auth.DefaultMaxTokenTTL, cfg.MaxTokenTTL)
	assert.Equal(t, auth.DefaultImpersonationTTL, cfg.ImpersonationTTL)
	assert.Equal(t, auth.DefaultRevocationTimeout, cfg.RevocationTimeout)
	assert.False(t, cfg.TransitionMode)
}

func TestConfigFromEnvMissingSecret(t *testing.T) {
	t.Setenv("AUTH_SIGNING_SECRET", "")

	_, err := auth.ConfigFromEnv()
	assert.Error(t, err)
}
