package email

import (
	"context"
	"log/slog"
)

type devSender struct {
	log *slog.Logger
}

// NewDevSender returns an EmailSender that logs instead of sending.
// Useful for local development where no Postmark account is configured.
func NewDevSender(log *slog.Logger) EmailSender {
	if log == nil {
		log = slog.Default()
	}
	return &devSender{log: log}
}

func (s *devSender) SendEmail(ctx context.Context, params SendEmailParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "email suppressed in development",
		"to", params.SendTo,
		"subject", params.Subject,
		"tag", params.Tag,
	)
	return nil
}
