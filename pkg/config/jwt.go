package config

import (
	"net/http"
	"time"
)

// JWTConfig holds token signing configuration. Signing is always RS256;
// the key pair is loaded once at startup and treated as immutable.
type JWTConfig struct {
	PrivateKeyFile     string `env:"SENTRA_JWT_PRIVATE_KEY_FILE" env-default:"jwt-private.pem"`
	KeyID              string `env:"SENTRA_JWT_KEY_ID" env-default:"sentra-key-1"`
	AccessTokenExpiry  string `env:"SENTRA_ACCESS_TOKEN_EXPIRY" env-default:"15m"`
	RefreshTokenExpiry string `env:"SENTRA_REFRESH_TOKEN_EXPIRY" env-default:"168h"`
	Issuer             string `env:"SENTRA_JWT_ISSUER" env-default:"sentra"`
	Audience           string `env:"SENTRA_JWT_AUDIENCE" env-default:"sentra"`
	CookieDomain       string `env:"SENTRA_COOKIE_DOMAIN" env-default:""`
	CookieHttpOnly     bool   `env:"SENTRA_COOKIE_HTTP_ONLY" env-default:"true"`
	CookieSecure       bool   `env:"SENTRA_COOKIE_SECURE" env-default:"true"`
}

// ParseAccessTokenExpiry parses the access token expiry duration
func (j JWTConfig) ParseAccessTokenExpiry() (time.Duration, error) {
	return ParseDuration(j.AccessTokenExpiry)
}

// ParseRefreshTokenExpiry parses the refresh token expiry duration
func (j JWTConfig) ParseRefreshTokenExpiry() (time.Duration, error) {
	return ParseDuration(j.RefreshTokenExpiry)
}

// CookieSameSite returns the appropriate SameSite setting based on CookieSecure
func (j JWTConfig) CookieSameSite() http.SameSite {
	if j.CookieSecure {
		return http.SameSiteStrictMode
	}
	return http.SameSiteLaxMode
}
