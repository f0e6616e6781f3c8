package notification

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"

	"github.com/sentra-id/sentra/pkg/config"
)

// EmailNotifier sends over SMTP using go-mail.
type EmailNotifier struct {
	client  *mail.Client
	from    string
	baseURL string
}

func NewEmailNotifier(cfg config.EmailConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(int(cfg.Port)),
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	if !cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &EmailNotifier{client: client, from: cfg.From, baseURL: cfg.BaseURL}, nil
}

func (n *EmailNotifier) SendPasswordResetEmail(ctx context.Context, email, token string) error {
	body := fmt.Sprintf(
		"A password reset was requested for your account.\n\n"+
			"Reset your password within the next hour:\n%s/reset-password?token=%s\n\n"+
			"If you did not request this, you can ignore this message.\n",
		n.baseURL, token)
	return n.send(ctx, email, "Reset your password", body)
}

func (n *EmailNotifier) SendEmailVerificationEmail(ctx context.Context, email, token string) error {
	body := fmt.Sprintf(
		"Welcome! Confirm your email address to finish setting up your account:\n%s/verify-email?token=%s\n",
		n.baseURL, token)
	return n.send(ctx, email, "Verify your email address", body)
}

func (n *EmailNotifier) send(ctx context.Context, to, subject, body string) error {
	msg := mail.NewMsg()
	if err := msg.From(n.from); err != nil {
		return fmt.Errorf("invalid from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	if err := n.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
