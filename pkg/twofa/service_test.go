package twofa

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

func newTestEngine() *Engine {
	return NewEngine(NewInMemoryRepository(), "sentra-test")
}

func currentCode(t *testing.T, secret string) string {
	t.Helper()
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	return code
}

// enableForTest walks a user through setup and enable, returning the
// secret and the plaintext backup codes.
func enableForTest(t *testing.T, e *Engine, userID uuid.UUID) (string, []string) {
	t.Helper()
	ctx := context.Background()

	setup, err := e.GenerateTotpSecret(ctx, userID, "alice@example.com")
	require.NoError(t, err)

	codes, err := e.EnableTwoFactor(ctx, userID, currentCode(t, setup.Secret))
	require.NoError(t, err)
	return setup.Secret, codes
}

func TestEngine_SetupLifecycle(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	userID := uuid.New()

	setup, err := e.GenerateTotpSecret(ctx, userID, "alice@example.com")
	require.NoError(t, err)
	assert.NotEmpty(t, setup.Secret)
	assert.Contains(t, setup.ProvisioningURI, "otpauth://totp/")
	assert.Contains(t, setup.ProvisioningURI, "sentra-test")

	// Setup in progress does not count as enabled
	enabled, err := e.IsEnabled(ctx, userID)
	require.NoError(t, err)
	assert.False(t, enabled)

	require.NoError(t, e.VerifyTotpSetup(ctx, userID, currentCode(t, setup.Secret)))

	err = e.VerifyTotpSetup(ctx, userID, "000000")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTwoFactorCode))
}

func TestEngine_VerifySetupWithoutSetup(t *testing.T) {
	e := newTestEngine()

	err := e.VerifyTotpSetup(context.Background(), uuid.New(), "123456")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTwoFactorNotSetUp))
}

func TestEngine_EnableGeneratesBackupCodes(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	userID := uuid.New()

	_, codes := enableForTest(t, e, userID)

	require.Len(t, codes, 10)
	for _, code := range codes {
		require.Len(t, code, 9)
		assert.Equal(t, byte('-'), code[4])
		for _, c := range strings.ReplaceAll(code, "-", "") {
			assert.Contains(t, backupCodeAlphabet, string(c))
		}
	}

	enabled, err := e.IsEnabled(ctx, userID)
	require.NoError(t, err)
	assert.True(t, enabled)

	remaining, err := e.RemainingBackupCodes(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 10, remaining)
}

func TestEngine_EnableWithWrongCode(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	userID := uuid.New()

	_, err := e.GenerateTotpSecret(ctx, userID, "alice@example.com")
	require.NoError(t, err)

	_, err = e.EnableTwoFactor(ctx, userID, "000000")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTwoFactorCode))

	enabled, err := e.IsEnabled(ctx, userID)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestEngine_VerifyTotpCode(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	userID := uuid.New()

	secret, _ := enableForTest(t, e, userID)

	require.NoError(t, e.VerifyTotpCode(ctx, userID, currentCode(t, secret)))

	err := e.VerifyTotpCode(ctx, userID, "000000")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTwoFactorCode))

	err = e.VerifyTotpCode(ctx, uuid.New(), "123456")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTwoFactorNotEnabled))
}

func TestEngine_BackupCodeSingleUse(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	userID := uuid.New()

	_, codes := enableForTest(t, e, userID)

	require.NoError(t, e.VerifyBackupCode(ctx, userID, codes[0]))

	// Same code can never verify twice
	err := e.VerifyBackupCode(ctx, userID, codes[0])
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeBackupCodeAlreadyUsed))

	remaining, err := e.RemainingBackupCodes(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 9, remaining)
}

func TestEngine_BackupCodeNormalization(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	userID := uuid.New()

	_, codes := enableForTest(t, e, userID)

	// Lowercase without the hyphen still matches
	mangled := strings.ToLower(strings.ReplaceAll(codes[1], "-", ""))
	require.NoError(t, e.VerifyBackupCode(ctx, userID, mangled))
}

func TestEngine_BackupCodeUnknown(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	userID := uuid.New()

	enableForTest(t, e, userID)

	err := e.VerifyBackupCode(ctx, userID, "ZZZZ-ZZZZ")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTwoFactorCode))
}

func TestEngine_RegenerateInvalidatesOldCodes(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	userID := uuid.New()

	_, oldCodes := enableForTest(t, e, userID)

	newCodes, err := e.RegenerateBackupCodes(ctx, userID)
	require.NoError(t, err)
	require.Len(t, newCodes, 10)

	err = e.VerifyBackupCode(ctx, userID, oldCodes[0])
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeInvalidTwoFactorCode))

	require.NoError(t, e.VerifyBackupCode(ctx, userID, newCodes[0]))
}

func TestEngine_RegenerateRequiresEnabled(t *testing.T) {
	e := newTestEngine()

	_, err := e.RegenerateBackupCodes(context.Background(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTwoFactorNotEnabled))
}

func TestEngine_Disable(t *testing.T) {
	e := newTestEngine()
	ctx := context.Background()
	userID := uuid.New()

	_, codes := enableForTest(t, e, userID)

	require.NoError(t, e.DisableTwoFactor(ctx, userID))

	enabled, err := e.IsEnabled(ctx, userID)
	require.NoError(t, err)
	assert.False(t, enabled)

	// Backup codes die with the secret
	err = e.VerifyBackupCode(ctx, userID, codes[0])
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTwoFactorNotEnabled))
}

func TestEngine_DisableRequiresEnabled(t *testing.T) {
	e := newTestEngine()

	err := e.DisableTwoFactor(context.Background(), uuid.New())
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTwoFactorNotEnabled))
}
