package notification

import (
	"context"
	"log/slog"

	"github.com/sentra-id/sentra/pkg/config"
	"github.com/sentra-id/sentra/pkg/utils"
)

// ConsoleNotifier logs instead of sending. Default in development and
// whenever no SMTP server is configured.
type ConsoleNotifier struct{}

func NewConsoleNotifier() *ConsoleNotifier {
	return &ConsoleNotifier{}
}

func (n *ConsoleNotifier) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	slog.Info("password reset email", "to", utils.MaskEmail(email), "token", token)
	return nil
}

func (n *ConsoleNotifier) SendEmailVerificationEmail(ctx context.Context, email, token string) error {
	slog.Info("email verification email", "to", utils.MaskEmail(email), "token", token)
	return nil
}

// NewFromConfig selects the notifier variant for the configured provider.
func NewFromConfig(cfg config.EmailConfig) (Notifier, error) {
	switch cfg.Provider {
	case config.EmailProviderSMTP:
		return NewEmailNotifier(cfg)
	default:
		return NewConsoleNotifier(), nil
	}
}
