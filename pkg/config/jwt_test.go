package config

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTConfig_CookieSameSite(t *testing.T) {
	secure := JWTConfig{CookieSecure: true}
	assert.Equal(t, http.SameSiteStrictMode, secure.CookieSameSite())

	insecure := JWTConfig{CookieSecure: false}
	assert.Equal(t, http.SameSiteLaxMode, insecure.CookieSameSite())
}

func TestJWTConfig_ExpiryParsing(t *testing.T) {
	cfg := JWTConfig{AccessTokenExpiry: "15m", RefreshTokenExpiry: "PT168H"}

	access, err := cfg.ParseAccessTokenExpiry()
	require.NoError(t, err)
	assert.Equal(t, 15*time.Minute, access)

	// ISO8601 durations are accepted alongside Go format
	refresh, err := cfg.ParseRefreshTokenExpiry()
	require.NoError(t, err)
	assert.Equal(t, 168*time.Hour, refresh)

	cfg.AccessTokenExpiry = "not-a-duration"
	_, err = cfg.ParseAccessTokenExpiry()
	assert.Error(t, err)
}
