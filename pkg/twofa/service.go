package twofa

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/utils"
)

const (
	backupCodeCount  = 10
	backupCodeLength = 8
	// No I, L, O, 0 or 1: users read these codes off paper.
	backupCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
)

// Engine drives the 2FA lifecycle: setup, enablement with backup codes,
// verification during login, disable and code regeneration.
type Engine struct {
	repo   Repository
	issuer string
}

func NewEngine(repo Repository, issuer string) *Engine {
	return &Engine{repo: repo, issuer: issuer}
}

// SetupResult is returned when a new TOTP secret is generated. The
// provisioning URI is what the authenticator app consumes (QR-encoded by
// the caller).
type SetupResult struct {
	Secret          string
	ProvisioningURI string
}

// GenerateTotpSecret starts (or restarts) 2FA setup. The secret is stored
// disabled; it has no effect on login until EnableTwoFactor succeeds.
func (e *Engine) GenerateTotpSecret(ctx context.Context, userID uuid.UUID, accountName string) (SetupResult, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      e.issuer,
		AccountName: accountName,
	})
	if err != nil {
		return SetupResult{}, fmt.Errorf("failed to generate totp secret: %w", err)
	}
	if err := e.repo.UpsertSecret(ctx, userID, key.Secret()); err != nil {
		return SetupResult{}, err
	}
	return SetupResult{Secret: key.Secret(), ProvisioningURI: key.URL()}, nil
}

// VerifyTotpSetup checks a code against the stored setup secret without
// enabling anything. Used by UIs to confirm the app was provisioned.
func (e *Engine) VerifyTotpSetup(ctx context.Context, userID uuid.UUID, code string) error {
	tfa, err := e.repo.GetTwoFactorAuth(ctx, userID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return apperrors.New(apperrors.ErrCodeTwoFactorNotSetUp, "two-factor setup has not been started")
		}
		return err
	}
	if !totp.Validate(code, tfa.Secret) {
		return apperrors.New(apperrors.ErrCodeInvalidTwoFactorCode, "invalid two-factor code")
	}
	return nil
}

// EnableTwoFactor verifies possession of the setup secret, flips it to
// enabled and generates the backup code set. The plaintext codes are
// returned exactly once; only their hashes are stored.
func (e *Engine) EnableTwoFactor(ctx context.Context, userID uuid.UUID, code string) ([]string, error) {
	if err := e.VerifyTotpSetup(ctx, userID, code); err != nil {
		return nil, err
	}

	codes, hashes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}
	if err := e.repo.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, err
	}
	if err := e.repo.Enable(ctx, userID); err != nil {
		return nil, err
	}
	return codes, nil
}

// IsEnabled reports whether the user has completed 2FA enablement.
func (e *Engine) IsEnabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	tfa, err := e.repo.GetTwoFactorAuth(ctx, userID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return false, nil
		}
		return false, err
	}
	return tfa.Enabled, nil
}

// VerifyTotpCode validates a login-time TOTP code. Requires enabled 2FA.
func (e *Engine) VerifyTotpCode(ctx context.Context, userID uuid.UUID, code string) error {
	tfa, err := e.repo.GetTwoFactorAuth(ctx, userID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return apperrors.New(apperrors.ErrCodeTwoFactorNotEnabled, "two-factor authentication is not enabled")
		}
		return err
	}
	if !tfa.Enabled {
		return apperrors.New(apperrors.ErrCodeTwoFactorNotEnabled, "two-factor authentication is not enabled")
	}
	if !totp.Validate(code, tfa.Secret) {
		return apperrors.New(apperrors.ErrCodeInvalidTwoFactorCode, "invalid two-factor code")
	}
	return nil
}

// VerifyBackupCode consumes a recovery code. Input is normalized, so
// "ab2k-7xqp", "AB2K 7XQP" and "AB2K7XQP" all match the same code.
func (e *Engine) VerifyBackupCode(ctx context.Context, userID uuid.UUID, code string) error {
	enabled, err := e.IsEnabled(ctx, userID)
	if err != nil {
		return err
	}
	if !enabled {
		return apperrors.New(apperrors.ErrCodeTwoFactorNotEnabled, "two-factor authentication is not enabled")
	}

	outcome, err := e.repo.ConsumeBackupCode(ctx, userID, utils.HashSHA256Hex(normalizeBackupCode(code)))
	if err != nil {
		return err
	}
	switch outcome {
	case ConsumeOK:
		return nil
	case ConsumeAlreadyUsed:
		return apperrors.New(apperrors.ErrCodeBackupCodeAlreadyUsed, "backup code has already been used")
	default:
		return apperrors.New(apperrors.ErrCodeInvalidTwoFactorCode, "invalid backup code")
	}
}

// DisableTwoFactor removes the secret and all backup codes.
func (e *Engine) DisableTwoFactor(ctx context.Context, userID uuid.UUID) error {
	enabled, err := e.IsEnabled(ctx, userID)
	if err != nil {
		return err
	}
	if !enabled {
		return apperrors.New(apperrors.ErrCodeTwoFactorNotEnabled, "two-factor authentication is not enabled")
	}
	return e.repo.Delete(ctx, userID)
}

// RegenerateBackupCodes replaces the full code set. Previously issued
// codes stop working immediately.
func (e *Engine) RegenerateBackupCodes(ctx context.Context, userID uuid.UUID) ([]string, error) {
	enabled, err := e.IsEnabled(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, apperrors.New(apperrors.ErrCodeTwoFactorNotEnabled, "two-factor authentication is not enabled")
	}

	codes, hashes, err := generateBackupCodes()
	if err != nil {
		return nil, err
	}
	if err := e.repo.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, err
	}
	return codes, nil
}

// RemainingBackupCodes returns how many unused codes the user has left.
func (e *Engine) RemainingBackupCodes(ctx context.Context, userID uuid.UUID) (int, error) {
	return e.repo.CountRemainingBackupCodes(ctx, userID)
}

func generateBackupCodes() (codes []string, hashes []string, err error) {
	codes = make([]string, 0, backupCodeCount)
	hashes = make([]string, 0, backupCodeCount)
	for i := 0; i < backupCodeCount; i++ {
		raw, err := randomBackupCode()
		if err != nil {
			return nil, nil, err
		}
		codes = append(codes, formatBackupCode(raw))
		hashes = append(hashes, utils.HashSHA256Hex(raw))
	}
	return codes, hashes, nil
}

func randomBackupCode() (string, error) {
	var b strings.Builder
	max := big.NewInt(int64(len(backupCodeAlphabet)))
	for i := 0; i < backupCodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate backup code: %w", err)
		}
		b.WriteByte(backupCodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// formatBackupCode renders XXXXXXXX as XXXX-XXXX for display.
func formatBackupCode(raw string) string {
	return raw[:4] + "-" + raw[4:]
}

// normalizeBackupCode undoes display formatting and case differences.
func normalizeBackupCode(code string) string {
	code = strings.ToUpper(code)
	code = strings.ReplaceAll(code, "-", "")
	return strings.ReplaceAll(code, " ", "")
}
