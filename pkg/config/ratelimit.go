package config

// RateLimitConfig holds per-endpoint-class request thresholds. Windows are
// fixed at one minute; a threshold of zero disables the class.
type RateLimitConfig struct {
	Enabled             bool `env:"SENTRA_RATE_LIMIT_ENABLED" env-default:"true"`
	LoginPerMin         int  `env:"SENTRA_RATE_LIMIT_LOGIN" env-default:"10"`
	RegisterPerMin      int  `env:"SENTRA_RATE_LIMIT_REGISTER" env-default:"5"`
	PasswordResetPerMin int  `env:"SENTRA_RATE_LIMIT_PASSWORD_RESET" env-default:"3"`
}

// OAuthConfig holds the static relying-party allow-list. Clients are
// administrative configuration, not runtime data: a comma-separated list
// of id|redirectURI entries, one redirect per entry (repeat the id to
// register multiple redirect URIs).
type OAuthConfig struct {
	Clients        string `env:"SENTRA_OAUTH_CLIENTS" env-default:""`
	AuthCodeExpiry string `env:"SENTRA_OAUTH_CODE_EXPIRY" env-default:"5m"`
}
