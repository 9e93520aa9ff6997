package grovekeep

import (
	"context"
	"log/slog"
	"time"
)

// Notifier delivers out-of-band messages to an account holder. Applications plug
// in their own delivery; the core never talks to an external channel itself.
type Notifier interface {
	SendSecurityAlert(ctx context.Context, to string, lockedUntil time.Time) error
	SendPasswordReset(ctx context.Context, to string, resetToken string) error
}

// ConsoleNotifier is a development implementation that logs messages
type ConsoleNotifier struct {
	Logger *slog.Logger
}

func (c *ConsoleNotifier) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *ConsoleNotifier) SendSecurityAlert(ctx context.Context, to string, lockedUntil time.Time) error {
	c.logger().InfoContext(ctx, "EMAIL: security alert",
		"to", to,
		"subject", "Your account was locked",
		"locked_until", lockedUntil.Format(time.RFC3339))
	return nil
}

func (c *ConsoleNotifier) SendPasswordReset(ctx context.Context, to string, resetToken string) error {
	c.logger().InfoContext(ctx, "EMAIL: password reset",
		"to", to,
		"subject", "Reset your password",
		"token", resetToken)
	return nil
}

// NopNotifier drops every message
type NopNotifier struct{}

func (NopNotifier) SendSecurityAlert(context.Context, string, time.Time) error { return nil }
func (NopNotifier) SendPasswordReset(context.Context, string, string) error    { return nil }
