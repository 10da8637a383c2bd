package tenantauth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// HashAlgorithmTag prefixes every stored hash so the format stays
	// self-describing across round-count upgrades.
	HashAlgorithmTag = "pbkdf2_sha256"

	// DefaultHashRounds is the PBKDF2 iteration count for new hashes.
	DefaultHashRounds = 260000

	// MinHashRounds is the floor below which stored hashes are treated
	// as malformed rather than verified.
	MinHashRounds = 200000

	hashSaltLength = 16
	hashKeyLength  = 32
)

// HashPassword derives a salted PBKDF2-HMAC-SHA256 hash and returns it
// in the self-describing form:
//
//	pbkdf2_sha256$<rounds>$<base64url(salt)>$<base64url(key)>
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrNoEmptyString
	}

	salt := make([]byte, hashSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := pbkdf2.Key([]byte(password), salt, DefaultHashRounds, hashKeyLength, sha256.New)

	return fmt.Sprintf(
		"%s$%d$%s$%s",
		HashAlgorithmTag,
		DefaultHashRounds,
		base64.RawURLEncoding.EncodeToString(salt),
		base64.RawURLEncoding.EncodeToString(key),
	), nil
}

// VerifyPassword re-derives the key using the salt and round count
// embedded in stored and compares in constant time. Malformed stored
// values verify false, never panic or error.
func VerifyPassword(password, stored string) bool {
	rounds, salt, key, ok := parseStoredHash(stored)
	if !ok {
		return false
	}

	derived := pbkdf2.Key([]byte(password), salt, rounds, len(key), sha256.New)
	return hmac.Equal(derived, key)
}

// ComparePasswordAndHash will validate the given cleartext password
// matches the stored hash, returning the credentials error used by the
// login flow on mismatch.
func ComparePasswordAndHash(password, stored string) error {
	if !VerifyPassword(password, stored) {
		return ErrMismatchedHashAndPassword
	}
	return nil
}

func parseStoredHash(stored string) (rounds int, salt, key []byte, ok bool) {
	parts := strings.Split(stored, "$")
	if len(parts) != 4 || parts[0] != HashAlgorithmTag {
		return 0, nil, nil, false
	}

	rounds, err := strconv.Atoi(parts[1])
	if err != nil || rounds < MinHashRounds {
		return 0, nil, nil, false
	}

	salt, err = base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil || len(salt) == 0 {
		return 0, nil, nil, false
	}

	key, err = base64.RawURLEncoding.DecodeString(parts[3])
	if err != nil || len(key) == 0 {
		return 0, nil, nil, false
	}

	return rounds, salt, key, true
}
