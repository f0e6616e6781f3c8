package router_test

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-id/sentra/pkg/api"
	"github.com/sentra-id/sentra/pkg/auth"
	"github.com/sentra-id/sentra/pkg/config"
	"github.com/sentra-id/sentra/pkg/device"
	"github.com/sentra-id/sentra/pkg/oauth"
	"github.com/sentra-id/sentra/pkg/password"
	"github.com/sentra-id/sentra/pkg/ratelimit"
	"github.com/sentra-id/sentra/pkg/revocation"
	"github.com/sentra-id/sentra/pkg/router"
	"github.com/sentra-id/sentra/pkg/session"
	"github.com/sentra-id/sentra/pkg/tokengenerator"
	"github.com/sentra-id/sentra/pkg/twofa"
	"github.com/sentra-id/sentra/pkg/user"
)

const testClientSpec = "web-app|https://app.example.com/callback"

func newTestServer(t *testing.T, mode config.Mode) *httptest.Server {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	codec := tokengenerator.NewCodec(key, "test-key-1", "sentra-test", "sentra-test")

	mr := miniredis.RunT(t)
	cache := revocation.NewCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	users := user.NewInMemoryRepository()
	sessions := session.NewInMemoryRepository()
	hasher := password.NewManager()

	issuer := auth.NewIssuer(users, sessions, hasher, codec, cache,
		auth.WithTwoFactorEngine(twofa.NewEngine(twofa.NewInMemoryRepository(), "sentra-test")),
		auth.WithDeviceTracker(device.NewTracker(device.NewInMemoryRepository(), sessions, cache)),
	)

	clients, err := oauth.NewStaticClientRepository(testClientSpec)
	require.NoError(t, err)
	bridge := oauth.NewBridge(oauth.NewInMemoryCodeStore(), clients)

	handler := api.NewHandler(issuer, bridge, codec, nil)

	mux := router.New(router.Config{
		Mode: mode,
		Features: config.FeaturesConfig{
			TwoFactor:         true,
			DeviceManagement:  true,
			AccountManagement: true,
			SocialLogin:       true,
		},
		Handler: handler,
		Guard:   ratelimit.NewGuard(config.RateLimitConfig{Enabled: false}),
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, srv *httptest.Server, path, bearer string, body any) (*http.Response, map[string]any) {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+path, bytes.NewReader(buf))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (X11; Linux x86_64) Chrome/120.0.0.0")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func getJSON(t *testing.T, srv *httptest.Server, path, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+path, nil)
	require.NoError(t, err)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func registerAndLogin(t *testing.T, srv *httptest.Server, email, pw string) (accessToken, refreshToken string) {
	t.Helper()
	resp, _ := postJSON(t, srv, "/auth/register", "", map[string]string{"email": email, "password": pw})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := postJSON(t, srv, "/auth/login", "", map[string]string{"email": email, "password": pw})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return body["access_token"].(string), body["refresh_token"].(string)
}

func TestRouter_RegisterLoginAndMe(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)

	access, _ := registerAndLogin(t, srv, "ada@example.com", "correct-horse-9")

	resp, body := getJSON(t, srv, "/auth/me", access)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ada@example.com", body["email"])
}

func TestRouter_LoginRejectsBadPassword(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)
	registerAndLogin(t, srv, "bob@example.com", "correct-horse-9")

	resp, body := postJSON(t, srv, "/auth/login", "", map[string]string{
		"email": "bob@example.com", "password": "wrong-password-1",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "INVALID_CREDENTIALS", body["error"])
}

func TestRouter_ProtectedRoutesNeedToken(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)

	resp, _ := getJSON(t, srv, "/devices/", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = getJSON(t, srv, "/devices/", "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_RefreshRotatesAndRejectsReplay(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)
	_, refresh := registerAndLogin(t, srv, "carol@example.com", "correct-horse-9")

	resp, body := postJSON(t, srv, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["refresh_token"])

	// Replaying the consumed token is reuse and kills the family.
	resp, replay := postJSON(t, srv, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_REUSED", replay["error"])

	rotated := body["refresh_token"].(string)
	resp, _ = postJSON(t, srv, "/auth/refresh", "", map[string]string{"refresh_token": rotated})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_LogoutInvalidatesRefresh(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)
	access, refresh := registerAndLogin(t, srv, "dave@example.com", "correct-horse-9")

	resp, _ := postJSON(t, srv, "/auth/logout", access, map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := postJSON(t, srv, "/auth/refresh", "", map[string]string{"refresh_token": refresh})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_INVALID_OR_EXPIRED", body["error"])
}

func TestRouter_DeviceListShowsLoginDevice(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)
	access, _ := registerAndLogin(t, srv, "erin@example.com", "correct-horse-9")

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/devices/", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+access)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var devices []map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "Chrome", devices[0]["browser"])
}

func TestRouter_TwoFactorSetupAndStatus(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)
	access, _ := registerAndLogin(t, srv, "fay@example.com", "correct-horse-9")

	resp, body := postJSON(t, srv, "/2fa/setup", access, map[string]string{})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, body["secret"])
	assert.Contains(t, body["provisioning_uri"], "otpauth://totp/")

	resp, status := getJSON(t, srv, "/2fa/", access)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, false, status["enabled"])
}

func TestRouter_OAuthCodeFlow(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)
	access, _ := registerAndLogin(t, srv, "gil@example.com", "correct-horse-9")

	verifier, err := oauth.GenerateCodeVerifier()
	require.NoError(t, err)
	challenge, err := oauth.ComputeChallenge(verifier, oauth.ChallengeS256)
	require.NoError(t, err)

	resp, body := postJSON(t, srv, "/oauth/authorize", access, map[string]string{
		"client_id":             "web-app",
		"redirect_uri":          "https://app.example.com/callback",
		"code_challenge":        challenge,
		"code_challenge_method": "S256",
		"state":                 "xyz",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotEmpty(t, body["code"])
	assert.Equal(t, "xyz", body["state"])

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {body["code"].(string)},
		"code_verifier": {verifier},
		"client_id":     {"web-app"},
		"redirect_uri":  {"https://app.example.com/callback"},
	}
	tokenResp, err := http.PostForm(srv.URL+"/oauth/token", form)
	require.NoError(t, err)
	defer tokenResp.Body.Close()

	require.Equal(t, http.StatusOK, tokenResp.StatusCode)
	var tokens map[string]any
	require.NoError(t, json.NewDecoder(tokenResp.Body).Decode(&tokens))
	assert.Equal(t, "Bearer", tokens["token_type"])
	assert.NotEmpty(t, tokens["access_token"])

	// A second redemption of the same code must fail.
	replayResp, err := http.PostForm(srv.URL+"/oauth/token", form)
	require.NoError(t, err)
	defer replayResp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, replayResp.StatusCode)
}

func TestRouter_TokenEndpointRejectsUnknownGrant(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)

	resp, err := http.PostForm(srv.URL+"/oauth/token", url.Values{"grant_type": {"password"}})
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "unsupported_grant_type", body["error"])
}

func TestRouter_JWKSPublishesKey(t *testing.T) {
	srv := newTestServer(t, config.ModeFull)

	resp, body := getJSON(t, srv, "/.well-known/jwks.json", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	keys := body["keys"].([]any)
	require.Len(t, keys, 1)
	key := keys[0].(map[string]any)
	assert.Equal(t, "RSA", key["kty"])
	assert.Equal(t, "RS256", key["alg"])
	assert.Equal(t, "test-key-1", key["kid"])
}

func TestRouter_SSOModeMountsVerificationOnly(t *testing.T) {
	srv := newTestServer(t, config.ModeSSO)

	resp, _ := getJSON(t, srv, "/.well-known/jwks.json", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/auth/register",
		strings.NewReader(`{"email":"x@example.com","password":"correct-horse-9"}`))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
