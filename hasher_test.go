package tenantauth_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	auth "github.com/corelith/go-tenantauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPasswordFormat(t *testing.T) {
	hash, err := auth.HashPassword("s3cret-password")
	require.NoError(t, err)

	parts := strings.Split(hash, "$")
	require.Len(t, parts, 4)
	assert.Equal(t, auth.HashAlgorithmTag, parts[0])
	assert.Equal(t, fmt.Sprintf("%d", auth.DefaultHashRounds), parts[1])
	assert.NotEmpty(t, parts[2])
	assert.NotEmpty(t, parts[3])
}

func TestHashPasswordEmpty(t *testing.T) {
	_, err := auth.HashPassword("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrNoEmptyString))
}

func TestHashPasswordSaltedPerCall(t *testing.T) {
	a, err := auth.HashPassword("same-password")
	require.NoError(t, err)
	b, err := auth.HashPassword("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.True(t, auth.VerifyPassword("same-password", a))
	assert.True(t, auth.VerifyPassword("same-password", b))
}

func TestVerifyPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)

	tests := []struct {
		name     string
		password string
		stored   string
		want     bool
	}{
		{"matching password", "correct horse battery staple", hash, true},
		{"wrong password", "incorrect horse", hash, false},
		{"empty password", "", hash, false},
		{"empty stored value", "anything", "", false},
		{"wrong algorithm tag", "anything", "bcrypt$12$c2FsdA$a2V5", false},
		{"rounds below floor", "anything", "pbkdf2_sha256$1000$c2FsdA$a2V5", false},
		{"non-numeric rounds", "anything", "pbkdf2_sha256$lots$c2FsdA$a2V5", false},
		{"missing segment", "anything", "pbkdf2_sha256$260000$c2FsdA", false},
		{"garbage base64 salt", "anything", "pbkdf2_sha256$260000$!!!$a2V5", false},
		{"garbage base64 key", "anything", "pbkdf2_sha256$260000$c2FsdA$!!!", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.VerifyPassword(tt.password, tt.stored))
		})
	}
}

func TestComparePasswordAndHash(t *testing.T) {
	hash, err := auth.HashPassword("pa55word!")
	require.NoError(t, err)

	assert.NoError(t, auth.ComparePasswordAndHash("pa55word!", hash))

	err = auth.ComparePasswordAndHash("nope", hash)
	require.Error(t, err)
	assert.True(t, errors.Is(err, auth.ErrMismatchedHashAndPassword))
}
