package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

// resetTokenBytes is the entropy of a password reset token (128 bits).
const resetTokenBytes = 16

// NewResetToken returns a URL-safe random token for the reset email and the
// digest to persist.  Only the digest is stored, so a leaked users table
// cannot be replayed against the reset endpoint.
func NewResetToken() (raw, digest string, err error) {
	buf := make([]byte, resetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	raw = base64.RawURLEncoding.EncodeToString(buf)
	return raw, HashResetToken(raw), nil
}

// HashResetToken returns the SHA‑256 hex digest of a raw reset token.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
