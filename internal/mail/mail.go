// Package mail delivers transactional e-mail, either directly over SMTP or
// through the asynq queue drained by cmd/worker.
package mail

//go:generate mockgen -destination=mocks/sender_mock.go -package=mocks github.com/hongminglow/cabinet-be/internal/mail Sender

import (
	"context"
	"log/slog"
)

// Sender delivers a single plain-text message.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes messages to the logger instead of sending them. It is used
// when no SMTP relay is configured.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, to, subject, body string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "mail not sent: no smtp relay configured",
		slog.String("to", to),
		slog.String("subject", subject),
		slog.Int("body_bytes", len(body)),
	)
	return nil
}
