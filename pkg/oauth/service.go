package oauth

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
	"github.com/sentra-id/sentra/pkg/utils"
)

const DefaultCodeExpiry = 5 * time.Minute

// Bridge mints and redeems one-time authorization codes so a second
// application can obtain a session without re-prompting credentials.
type Bridge struct {
	codes      CodeStore
	clients    ClientRepository
	codeExpiry time.Duration
}

type BridgeOption func(*Bridge)

func WithCodeExpiry(d time.Duration) BridgeOption {
	return func(b *Bridge) { b.codeExpiry = d }
}

func NewBridge(codes CodeStore, clients ClientRepository, options ...BridgeOption) *Bridge {
	b := &Bridge{codes: codes, clients: clients, codeExpiry: DefaultCodeExpiry}
	for _, opt := range options {
		opt(b)
	}
	return b
}

// CreateAuthorizationCode mints a code bound to the user, client,
// redirect URI and PKCE challenge. Client and redirect are not validated
// here; redemption is the single validation point.
func (b *Bridge) CreateAuthorizationCode(ctx context.Context, userID uuid.UUID, clientID, redirectURI, challenge string, method ChallengeMethod) (string, error) {
	code, err := utils.GenerateRandomURLSafe(32)
	if err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}

	err = b.codes.CreateCode(ctx, AuthorizationCode{
		Code:            code,
		UserID:          userID,
		ClientID:        clientID,
		RedirectURI:     redirectURI,
		CodeChallenge:   challenge,
		ChallengeMethod: method,
		ExpiresAt:       time.Now().Add(b.codeExpiry),
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// ExchangeCode validates and consumes an authorization code, returning
// the user it was minted for. Every failure collapses into the same
// generic error so a probing client learns nothing about which check
// tripped; the specific cause is logged server-side.
func (b *Bridge) ExchangeCode(ctx context.Context, code, codeVerifier, clientID, redirectURI string) (uuid.UUID, error) {
	client, err := b.clients.GetClient(ctx, clientID)
	if err != nil {
		return uuid.Nil, b.fail("unknown client", err)
	}
	if !client.AllowsRedirect(redirectURI) {
		return uuid.Nil, b.fail("redirect uri not in allow-list", nil)
	}

	// Consumption happens before the remaining checks: a code burned by
	// a failed PKCE attempt cannot be retried.
	rec, err := b.codes.ConsumeCode(ctx, code)
	if err != nil {
		return uuid.Nil, b.fail("code not found or already used", err)
	}

	now := time.Now()
	if !now.Before(rec.ExpiresAt) {
		return uuid.Nil, b.fail("code expired", nil)
	}
	if rec.ClientID != clientID {
		return uuid.Nil, b.fail("client mismatch", nil)
	}
	if rec.RedirectURI != redirectURI {
		return uuid.Nil, b.fail("redirect uri mismatch", nil)
	}
	if err := VerifyPKCE(codeVerifier, rec.CodeChallenge, rec.ChallengeMethod); err != nil {
		return uuid.Nil, b.fail("pkce verification failed", err)
	}

	return rec.UserID, nil
}

func (b *Bridge) fail(reason string, cause error) error {
	slog.Warn("authorization code exchange rejected", "reason", reason, "error", cause)
	if cause == nil {
		cause = fmt.Errorf("%s", reason)
	}
	return apperrors.OAuthExchangeFailed(cause)
}
