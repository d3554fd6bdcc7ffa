// Copyright (c) 2026 Opsdash. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
)

// ResetNotifier delivers a reset token to its owner.
type ResetNotifier interface {
	NotifyReset(ctx context.Context, ticket *ResetTicket) error
}

// LogNotifier writes reset requests to the log instead of sending mail.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a [LogNotifier].
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyReset logs the ticket. The token is included so an operator can relay it.
func (notifier *LogNotifier) NotifyReset(ctx context.Context, ticket *ResetTicket) error {
	notifier.logger.InfoContext(ctx, "password_reset_requested",
		slog.String("user_id", ticket.UserID),
		slog.String("email", ticket.Email),
		slog.String("token", ticket.Token),
		slog.Time("expires_at", ticket.ExpiresAt),
	)
	return nil
}
