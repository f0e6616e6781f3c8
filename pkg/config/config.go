package config

import (
	"fmt"

	"github.com/ilyakaznacheev/cleanenv"
)

// Mode selects between a full identity provider and an SSO verifier that
// holds no user store of its own and only verifies tokens.
type Mode string

const (
	ModeFull Mode = "full"
	ModeSSO  Mode = "sso"
)

// Config is the full configuration surface for the service
type Config struct {
	Mode     Mode   `env:"SENTRA_MODE" env-default:"full"`
	HTTPAddr string `env:"SENTRA_HTTP_ADDR" env-default:":4000"`

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Email     EmailConfig
	Features  FeaturesConfig
	RateLimit RateLimitConfig
	OAuth     OAuthConfig
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read config from environment: %w", err)
	}
	return &cfg, nil
}

// FeaturesConfig toggles the optional subsystems. A disabled subsystem is
// simply not wired in; operations that need it fail with FeatureDisabled.
type FeaturesConfig struct {
	TwoFactor         bool `env:"SENTRA_FEATURE_TWO_FACTOR" env-default:"true"`
	DeviceManagement  bool `env:"SENTRA_FEATURE_DEVICE_MANAGEMENT" env-default:"true"`
	AccountManagement bool `env:"SENTRA_FEATURE_ACCOUNT_MANAGEMENT" env-default:"true"`
	SocialLogin       bool `env:"SENTRA_FEATURE_SOCIAL_LOGIN" env-default:"false"`
	Email             bool `env:"SENTRA_FEATURE_EMAIL" env-default:"true"`
}
