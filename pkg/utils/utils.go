package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
)

// GenerateRandomURLSafe returns a base64url-encoded (no padding) random
// string built from the given number of random bytes.
func GenerateRandomURLSafe(numBytes int) (string, error) {
	buf := make([]byte, numBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// HashSHA256Hex returns the lowercase hex encoding of the SHA-256 digest
// of the input.
func HashSHA256Hex(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// StringPtr returns a pointer to the given string.
func StringPtr(s string) *string {
	return &s
}

// MaskEmail hides most of the local part of an email address for logging,
// keeping the first character and the domain.
func MaskEmail(email string) string {
	at := strings.IndexByte(email, '@')
	if at <= 1 {
		return "***"
	}
	return email[:1] + "***" + email[at:]
}
