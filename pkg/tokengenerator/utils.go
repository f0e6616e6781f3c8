package tokengenerator

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// HashToken returns the hex-encoded SHA-256 digest of a raw token string.
// Only this hash is ever persisted; the raw token is handed to the caller
// once.
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}

// CalculateTTL returns the remaining lifetime of a token, floored at zero.
// Used to size revocation-cache entries so they expire exactly when the
// token itself would.
func CalculateTTL(expiry time.Time) time.Duration {
	ttl := time.Until(expiry)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// IsExpired reports whether the given expiry instant has passed. The exact
// expiry instant counts as expired.
func IsExpired(expiry time.Time, now time.Time) bool {
	return !now.Before(expiry)
}
