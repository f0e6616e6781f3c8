package oauth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// ChallengeMethod is the PKCE transform applied to the code verifier.
type ChallengeMethod string

const (
	ChallengePlain ChallengeMethod = "plain"
	ChallengeS256  ChallengeMethod = "S256"
)

// GenerateCodeVerifier returns a random RFC 7636 code verifier, 43
// characters of base64url.
func GenerateCodeVerifier() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// ComputeChallenge derives the challenge a client sends on /authorize.
func ComputeChallenge(verifier string, method ChallengeMethod) (string, error) {
	switch method {
	case ChallengePlain:
		return verifier, nil
	case ChallengeS256:
		hash := sha256.Sum256([]byte(verifier))
		return base64.RawURLEncoding.EncodeToString(hash[:]), nil
	default:
		return "", fmt.Errorf("unsupported challenge method: %s", method)
	}
}

// VerifyPKCE checks a redemption-time verifier against the stored
// challenge. S256 compares base64url(SHA256(verifier)) without padding;
// plain compares directly.
func VerifyPKCE(verifier, challenge string, method ChallengeMethod) error {
	if verifier == "" || challenge == "" {
		return fmt.Errorf("missing code verifier or challenge")
	}
	if len(verifier) < 43 || len(verifier) > 128 {
		return fmt.Errorf("code verifier length out of range")
	}

	computed, err := ComputeChallenge(verifier, method)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
		return fmt.Errorf("code verifier does not match challenge")
	}
	return nil
}
