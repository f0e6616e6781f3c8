// Package oauth bridges an established session to a second application
// through the authorization-code flow with PKCE.
package oauth

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationCode is a one-time code minted on /authorize and redeemed
// on /token. UsedAt is set exactly once.
type AuthorizationCode struct {
	Code            string
	UserID          uuid.UUID
	ClientID        string
	RedirectURI     string
	CodeChallenge   string
	ChallengeMethod ChallengeMethod
	ExpiresAt       time.Time
	UsedAt          *time.Time
	CreatedAt       time.Time
}

// Client is a registered relying party. Redirect URIs are an exact-match
// allow-list; clients are configured administratively, never mutated at
// runtime.
type Client struct {
	ID           string
	RedirectURIs []string
}

// AllowsRedirect reports whether the URI is in the client's allow-list.
func (c Client) AllowsRedirect(uri string) bool {
	for _, allowed := range c.RedirectURIs {
		if allowed == uri {
			return true
		}
	}
	return false
}
