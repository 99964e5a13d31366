// Package utils provides the credential verification primitive: an
// intentionally slow bcrypt hash/compare used for passwords and for
// refresh tokens at rest.
package utils

import (
	"crypto/sha256"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword safely compares bcrypt hash and plain password.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// HashRefresh returns a bcrypt hash of a raw refresh token. The token is
// pre-digested with SHA-256 because bcrypt only reads the first 72 bytes of
// its input and a signed refresh token is longer than that. Only this hash
// is ever persisted; the store must never hold anything that alone grants
// access if stolen.
func HashRefresh(raw string, cost int) (string, error) {
	return HashPassword(refreshDigest(raw), cost)
}

// VerifyRefresh compares a stored refresh-token hash against a presented raw
// token.
func VerifyRefresh(hash, raw string) bool {
	return VerifyPassword(hash, refreshDigest(raw))
}

func refreshDigest(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
