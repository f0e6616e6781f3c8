package config

// EmailProvider selects one of the closed set of email dispatcher
// variants. Anything unrecognized falls back to the console notifier so a
// missing SMTP server never blocks credential flows.
type EmailProvider string

const (
	EmailProviderConsole EmailProvider = "console"
	EmailProviderSMTP    EmailProvider = "smtp"
)

// EmailConfig holds outbound email configuration
type EmailConfig struct {
	Provider EmailProvider `env:"SENTRA_EMAIL_PROVIDER" env-default:"console"`
	Host     string        `env:"SENTRA_EMAIL_HOST" env-default:"localhost"`
	Port     uint16        `env:"SENTRA_EMAIL_PORT" env-default:"1025"`
	Username string        `env:"SENTRA_EMAIL_USERNAME" env-default:""`
	Password string        `env:"SENTRA_EMAIL_PASSWORD" env-default:""`
	From     string        `env:"SENTRA_EMAIL_FROM" env-default:"noreply@example.com"`
	TLS      bool          `env:"SENTRA_EMAIL_TLS" env-default:"false"`
	BaseURL  string        `env:"SENTRA_EMAIL_BASE_URL" env-default:"http://localhost:4000"`
}
