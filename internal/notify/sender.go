// Package notify abstracts delivery of account notifications to the user.
// Production deployments plug in an email or SMS gateway; the default sender
// only logs, which is acceptable for local development and nothing else.
package notify

import (
	"context"
	"log/slog"

	"pulse/internal/observability"
)

// Sender delivers a password-reset code to the account holder.
type Sender interface {
	SendResetCode(ctx context.Context, email, code string) error
}

// LogSender writes the code to the application log instead of delivering it.
type LogSender struct{}

// SendResetCode logs the code. Never use this sender in production: the code
// ends up in the process log, not with the user.
func (LogSender) SendResetCode(ctx context.Context, email, code string) error {
	observability.GlobalLogger.WarnContext(ctx, "password reset code (log delivery)",
		slog.String("email", email),
		slog.String("code", code),
	)
	return nil
}
