package password

import (
	"errors"
	"strings"
)

// ErrLegacyVerifierNotConfigured is returned when a stored hash is in a
// legacy format but no legacy hasher was wired in. Failing loudly here is
// deliberate: silently rejecting (or worse, accepting) a legacy hash would
// hide a broken migration path.
var ErrLegacyVerifierNotConfigured = errors.New("legacy hash format detected but no legacy verifier configured")

// Hasher defines the interface for password hashing implementations
type Hasher interface {
	// Hash hashes a password
	Hash(password string) (string, error)

	// Verify checks if the provided password matches the stored hash
	Verify(password, hashedPassword string) (bool, error)
}

// Format identifies the hashing scheme a stored hash was produced with,
// sniffed from its prefix.
type Format string

const (
	FormatArgon2id Format = "argon2id"
	FormatBcrypt   Format = "bcrypt"
	FormatUnknown  Format = "unknown"
)

// SniffFormat determines the hash format from the encoded hash prefix
func SniffFormat(encodedHash string) Format {
	switch {
	case strings.HasPrefix(encodedHash, "$argon2id$"):
		return FormatArgon2id
	case strings.HasPrefix(encodedHash, "$2a$"),
		strings.HasPrefix(encodedHash, "$2b$"),
		strings.HasPrefix(encodedHash, "$2y$"):
		return FormatBcrypt
	default:
		return FormatUnknown
	}
}

// Manager hashes with the current algorithm and verifies against both the
// current and, when wired, a legacy algorithm for migration.
type Manager struct {
	current Hasher
	legacy  Hasher
}

// ManagerOption configures a Manager
type ManagerOption func(*Manager)

// WithLegacyHasher wires in the verifier for pre-migration hashes
func WithLegacyHasher(h Hasher) ManagerOption {
	return func(m *Manager) {
		m.legacy = h
	}
}

// NewManager creates a Manager hashing with Argon2id
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		current: NewArgon2Hasher(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Hash hashes a plaintext password with the current algorithm
func (m *Manager) Hash(password string) (string, error) {
	return m.current.Hash(password)
}

// Verify checks a plaintext password against a stored hash. Malformed
// hashes verify as false rather than erroring out to the caller.
func (m *Manager) Verify(password, encodedHash string) (bool, error) {
	switch SniffFormat(encodedHash) {
	case FormatArgon2id:
		ok, err := m.current.Verify(password, encodedHash)
		if err != nil {
			return false, nil
		}
		return ok, nil
	case FormatBcrypt:
		if m.legacy == nil {
			return false, ErrLegacyVerifierNotConfigured
		}
		ok, err := m.legacy.Verify(password, encodedHash)
		if err != nil {
			return false, nil
		}
		return ok, nil
	default:
		return false, nil
	}
}

// VerifyAndUpgrade verifies a password and, when the stored hash is in a
// legacy format, re-hashes it with the current algorithm. The returned
// string is non-empty only when the caller should persist an upgraded
// hash.
func (m *Manager) VerifyAndUpgrade(password, encodedHash string) (bool, string, error) {
	format := SniffFormat(encodedHash)
	ok, err := m.Verify(password, encodedHash)
	if err != nil {
		return false, "", err
	}
	if !ok || format == FormatArgon2id {
		return ok, "", nil
	}

	upgraded, err := m.current.Hash(password)
	if err != nil {
		return true, "", err
	}
	return true, upgraded, nil
}
