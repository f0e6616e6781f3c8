// Package device tracks the browsers and machines a user signs in from,
// keyed by a stable fingerprint of the client's user agent.
package device

import (
	"time"

	"github.com/google/uuid"
)

// Device is one (user, fingerprint) pair. The fingerprint is derived,
// not unique across users: two users on the same browser produce the
// same fingerprint but distinct rows.
type Device struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Fingerprint string
	Name        string
	OS          string
	Browser     string
	Type        string
	LastActive  time.Time
	CreatedAt   time.Time
}

// Info is what the login path knows about the client.
type Info struct {
	UserAgent string
	IPAddress string
	Name      string
}
