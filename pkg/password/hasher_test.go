package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgon2Hasher_HashAndVerify(t *testing.T) {
	hasher := NewArgon2Hasher()

	passwords := []string{
		"Secret123!",
		"correct horse battery staple",
		"p@ssw0rd-with-unicode-ü",
	}

	for _, pw := range passwords {
		encoded, err := hasher.Hash(pw)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$"))

		ok, err := hasher.Verify(pw, encoded)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = hasher.Verify(pw+"x", encoded)
		require.NoError(t, err)
		assert.False(t, ok)
	}
}

func TestArgon2Hasher_HashesAreSalted(t *testing.T) {
	hasher := NewArgon2Hasher()

	first, err := hasher.Hash("Secret123!")
	require.NoError(t, err)
	second, err := hasher.Hash("Secret123!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestArgon2Hasher_EmptyPassword(t *testing.T) {
	hasher := NewArgon2Hasher()

	_, err := hasher.Hash("")
	assert.Error(t, err)
}

func TestSniffFormat(t *testing.T) {
	assert.Equal(t, FormatArgon2id, SniffFormat("$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA"))
	assert.Equal(t, FormatBcrypt, SniffFormat("$2a$10$abcdefghijklmnopqrstuv"))
	assert.Equal(t, FormatBcrypt, SniffFormat("$2b$12$abcdefghijklmnopqrstuv"))
	assert.Equal(t, FormatUnknown, SniffFormat("plain-md5-or-garbage"))
	assert.Equal(t, FormatUnknown, SniffFormat(""))
}

func TestManager_VerifyMalformedHashReturnsFalse(t *testing.T) {
	manager := NewManager()

	// Malformed argon2 payloads must verify false, never error out
	ok, err := manager.Verify("Secret123!", "$argon2id$not-a-real-hash")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = manager.Verify("Secret123!", "garbage")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestManager_LegacyWithoutVerifierFailsLoudly(t *testing.T) {
	manager := NewManager()

	legacyHash, err := (&BcryptHasher{}).Hash("Secret123!")
	require.NoError(t, err)

	_, err = manager.Verify("Secret123!", legacyHash)
	assert.ErrorIs(t, err, ErrLegacyVerifierNotConfigured)
}

func TestManager_VerifyAndUpgrade(t *testing.T) {
	manager := NewManager(WithLegacyHasher(&BcryptHasher{}))

	legacyHash, err := (&BcryptHasher{}).Hash("Secret123!")
	require.NoError(t, err)

	// Successful legacy verification produces an upgraded hash
	ok, upgraded, err := manager.VerifyAndUpgrade("Secret123!", legacyHash)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NotEmpty(t, upgraded)
	assert.Equal(t, FormatArgon2id, SniffFormat(upgraded))

	// The upgraded hash verifies with the current algorithm
	ok, err = manager.Verify("Secret123!", upgraded)
	require.NoError(t, err)
	assert.True(t, ok)

	// Wrong password does not upgrade
	ok, upgraded, err = manager.VerifyAndUpgrade("WrongPassword", legacyHash)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, upgraded)

	// Current-format hashes are left alone
	current, err := manager.Hash("Secret123!")
	require.NoError(t, err)
	ok, upgraded, err = manager.VerifyAndUpgrade("Secret123!", current)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, upgraded)
}
