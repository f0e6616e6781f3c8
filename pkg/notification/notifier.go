// Package notification delivers the outbound emails the auth flows
// depend on: password reset and email verification.
package notification

import "context"

// Notifier dispatches auth-related emails. The auth service treats it as
// optional; when absent, messages are logged instead of sent.
type Notifier interface {
	SendPasswordResetEmail(ctx context.Context, email, token string) error
	SendEmailVerificationEmail(ctx context.Context, email, token string) error
}
