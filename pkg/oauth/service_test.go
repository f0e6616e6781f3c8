package oauth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sentra-id/sentra/pkg/errors"
)

const testClientSpec = "web-app|https://app.example.com/callback,web-app|https://app.example.com/alt,cli|http://localhost:8085/callback"

func newTestBridge(t *testing.T, options ...BridgeOption) *Bridge {
	t.Helper()
	clients, err := NewStaticClientRepository(testClientSpec)
	require.NoError(t, err)
	return NewBridge(NewInMemoryCodeStore(), clients, options...)
}

func mintCode(t *testing.T, b *Bridge, userID uuid.UUID, method ChallengeMethod) (code, verifier string) {
	t.Helper()
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)
	challenge, err := ComputeChallenge(verifier, method)
	require.NoError(t, err)

	code, err = b.CreateAuthorizationCode(context.Background(), userID,
		"web-app", "https://app.example.com/callback", challenge, method)
	require.NoError(t, err)
	return code, verifier
}

func TestBridge_ExchangeS256RoundTrip(t *testing.T) {
	b := newTestBridge(t)
	userID := uuid.New()

	code, verifier := mintCode(t, b, userID, ChallengeS256)

	got, err := b.ExchangeCode(context.Background(), code, verifier, "web-app", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestBridge_ExchangePlainRoundTrip(t *testing.T) {
	b := newTestBridge(t)
	userID := uuid.New()

	code, verifier := mintCode(t, b, userID, ChallengePlain)

	got, err := b.ExchangeCode(context.Background(), code, verifier, "web-app", "https://app.example.com/callback")
	require.NoError(t, err)
	assert.Equal(t, userID, got)
}

func TestBridge_ReplayFails(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	code, verifier := mintCode(t, b, uuid.New(), ChallengeS256)

	_, err := b.ExchangeCode(ctx, code, verifier, "web-app", "https://app.example.com/callback")
	require.NoError(t, err)

	_, err = b.ExchangeCode(ctx, code, verifier, "web-app", "https://app.example.com/callback")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOAuthExchangeFailed))
}

func TestBridge_ConcurrentRedemptionSingleWinner(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	code, verifier := mintCode(t, b, uuid.New(), ChallengeS256)

	const contenders = 8
	var wg sync.WaitGroup
	results := make(chan error, contenders)
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.ExchangeCode(ctx, code, verifier, "web-app", "https://app.example.com/callback")
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
		}
	}
	assert.Equal(t, 1, successes)
}

func TestBridge_AllFailuresAreGeneric(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()
	userID := uuid.New()

	cases := map[string]func() error{
		"unknown client": func() error {
			code, verifier := mintCode(t, b, userID, ChallengeS256)
			_, err := b.ExchangeCode(ctx, code, verifier, "nope", "https://app.example.com/callback")
			return err
		},
		"redirect not allowed": func() error {
			code, verifier := mintCode(t, b, userID, ChallengeS256)
			_, err := b.ExchangeCode(ctx, code, verifier, "web-app", "https://evil.example.com/")
			return err
		},
		"unknown code": func() error {
			verifier, _ := GenerateCodeVerifier()
			_, err := b.ExchangeCode(ctx, "no-such-code", verifier, "web-app", "https://app.example.com/callback")
			return err
		},
		"wrong verifier": func() error {
			code, _ := mintCode(t, b, userID, ChallengeS256)
			other, _ := GenerateCodeVerifier()
			_, err := b.ExchangeCode(ctx, code, other, "web-app", "https://app.example.com/callback")
			return err
		},
		"client mismatch": func() error {
			code, verifier := mintCode(t, b, userID, ChallengeS256)
			// cli is a valid client but the code was minted for web-app;
			// use a redirect the cli client allows so only the binding check fails
			_, err := b.ExchangeCode(ctx, code, verifier, "cli", "http://localhost:8085/callback")
			return err
		},
	}

	for name, run := range cases {
		t.Run(name, func(t *testing.T) {
			err := run()
			require.Error(t, err)
			assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOAuthExchangeFailed))
			// One error shape for every cause
			assert.Equal(t, "authorization code exchange failed", err.(*apperrors.Error).Message)
		})
	}
}

func TestBridge_ExpiredCode(t *testing.T) {
	b := newTestBridge(t, WithCodeExpiry(-time.Second))
	ctx := context.Background()

	code, verifier := mintCode(t, b, uuid.New(), ChallengeS256)

	_, err := b.ExchangeCode(ctx, code, verifier, "web-app", "https://app.example.com/callback")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOAuthExchangeFailed))
}

func TestBridge_FailedPKCEBurnsCode(t *testing.T) {
	b := newTestBridge(t)
	ctx := context.Background()

	code, verifier := mintCode(t, b, uuid.New(), ChallengeS256)

	wrong, err := GenerateCodeVerifier()
	require.NoError(t, err)
	_, err = b.ExchangeCode(ctx, code, wrong, "web-app", "https://app.example.com/callback")
	require.Error(t, err)

	// Correct verifier cannot rescue a burned code
	_, err = b.ExchangeCode(ctx, code, verifier, "web-app", "https://app.example.com/callback")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeOAuthExchangeFailed))
}

func TestStaticClientRepository_Parse(t *testing.T) {
	repo, err := NewStaticClientRepository(testClientSpec)
	require.NoError(t, err)

	c, err := repo.GetClient(context.Background(), "web-app")
	require.NoError(t, err)
	assert.Len(t, c.RedirectURIs, 2)

	_, err = NewStaticClientRepository("missing-separator")
	assert.Error(t, err)
}

func TestVerifyPKCE(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)

	challenge, err := ComputeChallenge(verifier, ChallengeS256)
	require.NoError(t, err)
	require.NoError(t, VerifyPKCE(verifier, challenge, ChallengeS256))

	assert.Error(t, VerifyPKCE("too-short", challenge, ChallengeS256))
	assert.Error(t, VerifyPKCE(verifier, challenge, ChallengeMethod("S512")))
	assert.Error(t, VerifyPKCE(verifier, "", ChallengeS256))
}
