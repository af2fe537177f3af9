package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/zesthaus/event-booking/internal/config"
)

// NewMailer returns the Mailer selected by MAIL_PROVIDER.
func NewMailer(ctx context.Context, cfg config.MailConfig, lg zerolog.Logger) (Mailer, error) {
	switch cfg.Provider {
	case "", "smtp":
		return NewSMTPMailer(cfg)
	case "ses":
		return NewSESMailer(ctx, cfg)
	case "log":
		return NewLogMailer(lg), nil
	default:
		return nil, fmt.Errorf("unknown MAIL_PROVIDER %q", cfg.Provider)
	}
}
