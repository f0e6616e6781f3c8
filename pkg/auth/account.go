package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/user"
	"github.com/sentra-id/sentra/pkg/utils"
)

const minPasswordLength = 8

// Register creates a user with a hashed password and kicks off email
// verification.
func (i *Issuer) Register(ctx context.Context, email, plaintext, tenantID string) (user.User, error) {
	if len(plaintext) < minPasswordLength {
		return user.User{}, apperrors.Newf(apperrors.ErrCodePasswordComplexity,
			"password must be at least %d characters", minPasswordLength)
	}

	hash, err := i.hasher.Hash(plaintext)
	if err != nil {
		return user.User{}, apperrors.InternalWrap(err, "failed to hash password")
	}

	u, err := i.users.CreateUser(ctx, user.CreateUserParams{
		Email:        email,
		PasswordHash: &hash,
		Roles:        []string{"user"},
		TenantID:     tenantID,
	})
	if err != nil {
		return user.User{}, err
	}

	token, err := utils.GenerateRandomURLSafe(32)
	if err != nil {
		return user.User{}, apperrors.InternalWrap(err, "failed to generate verification token")
	}
	if err := i.users.SetVerificationToken(ctx, u.ID, token); err != nil {
		return user.User{}, err
	}
	i.sendVerificationEmail(ctx, u.Email, token)

	slog.Info("user registered", "user_id", u.ID)
	return u, nil
}

// VerifyEmail consumes a verification token.
func (i *Issuer) VerifyEmail(ctx context.Context, token string) (user.User, error) {
	u, err := i.users.VerifyEmailByToken(ctx, token)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return user.User{}, apperrors.TokenInvalidOrExpired()
		}
		return user.User{}, err
	}
	slog.Info("email verified", "user_id", u.ID)
	return u, nil
}

// RequestPasswordReset issues a reset token. The response shape never
// reveals whether the email exists; a miss is only visible in the logs.
func (i *Issuer) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := i.users.GetUserByEmail(ctx, email)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			slog.Info("password reset requested for unknown email", "email", utils.MaskEmail(email))
			return nil
		}
		return apperrors.InternalWrap(err, "password reset lookup failed")
	}

	token, err := utils.GenerateRandomURLSafe(32)
	if err != nil {
		return apperrors.InternalWrap(err, "failed to generate reset token")
	}
	if err := i.users.SetResetToken(ctx, u.ID, token, time.Now().Add(i.resetTokenTTL)); err != nil {
		return apperrors.InternalWrap(err, "failed to store reset token")
	}

	i.sendPasswordResetEmail(ctx, u.Email, token)
	slog.Info("password reset requested", "user_id", u.ID)
	return nil
}

// ResetPassword consumes a reset token, replaces the password and kills
// every outstanding session: a changed password invalidates all trust.
func (i *Issuer) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.Newf(apperrors.ErrCodePasswordComplexity,
			"password must be at least %d characters", minPasswordLength)
	}

	u, err := i.users.GetUserByResetToken(ctx, token)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
			return apperrors.TokenInvalidOrExpired()
		}
		return err
	}
	if u.ResetTokenExpiry == nil || !time.Now().Before(*u.ResetTokenExpiry) {
		return apperrors.TokenInvalidOrExpired()
	}

	hash, err := i.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.InternalWrap(err, "failed to hash password")
	}
	if err := i.users.UpdatePasswordHash(ctx, u.ID, hash); err != nil {
		return err
	}
	if err := i.users.ClearResetToken(ctx, u.ID); err != nil {
		return err
	}

	if err := i.RevokeAllUserTokens(ctx, u.ID); err != nil {
		return err
	}
	slog.Info("password reset completed", "user_id", u.ID)
	return nil
}

// ChangePassword replaces the password of a signed in user after
// verifying the current one.
func (i *Issuer) ChangePassword(ctx context.Context, userID uuid.UUID, current, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.Newf(apperrors.ErrCodePasswordComplexity,
			"password must be at least %d characters", minPasswordLength)
	}

	u, err := i.users.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if u.PasswordHash == nil {
		return apperrors.InvalidCredentials()
	}
	ok, err := i.hasher.Verify(current, *u.PasswordHash)
	if err != nil {
		return apperrors.InternalWrap(err, "password verification failed")
	}
	if !ok {
		return apperrors.InvalidCredentials()
	}

	hash, err := i.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.InternalWrap(err, "failed to hash password")
	}
	if err := i.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	slog.Info("password changed", "user_id", userID)
	return nil
}

// DeactivateAccount disables login and terminates every session.
func (i *Issuer) DeactivateAccount(ctx context.Context, userID uuid.UUID, reason string) error {
	if err := i.users.SetActive(ctx, userID, false, reason); err != nil {
		return err
	}
	return i.RevokeAllUserTokens(ctx, userID)
}

// ReactivateAccount re-enables a deactivated account.
func (i *Issuer) ReactivateAccount(ctx context.Context, userID uuid.UUID) error {
	return i.users.SetActive(ctx, userID, true, "")
}

// DeleteAccount removes the user and everything they own. Sessions are
// revoked first so stolen tokens die with the account.
func (i *Issuer) DeleteAccount(ctx context.Context, userID uuid.UUID) error {
	if err := i.RevokeAllUserTokens(ctx, userID); err != nil {
		return err
	}
	if i.twoFactor != nil {
		if enabled, err := i.twoFactor.IsEnabled(ctx, userID); err == nil && enabled {
			if err := i.twoFactor.DisableTwoFactor(ctx, userID); err != nil {
				return err
			}
		}
	}
	if err := i.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	slog.Info("account deleted", "user_id", userID)
	return nil
}

func (i *Issuer) sendVerificationEmail(ctx context.Context, email, token string) {
	if i.notifier == nil {
		slog.Info("verification email skipped, no notifier configured", "email", utils.MaskEmail(email))
		return
	}
	if err := i.notifier.SendEmailVerificationEmail(ctx, email, token); err != nil {
		slog.Error("failed to send verification email", "email", utils.MaskEmail(email), "error", err)
	}
}

func (i *Issuer) sendPasswordResetEmail(ctx context.Context, email, token string) {
	if i.notifier == nil {
		slog.Info("password reset email skipped, no notifier configured", "email", utils.MaskEmail(email))
		return
	}
	if err := i.notifier.SendPasswordResetEmail(ctx, email, token); err != nil {
		slog.Error("failed to send password reset email", "email", utils.MaskEmail(email), "error", err)
	}
}
