// Package notify builds and delivers the emails the service sends: booking
// confirmations with the QR ticket inline, and one-time login codes.
package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/wneessen/go-mail"
)

// InlineImage is an image embedded in the HTML body and referenced from it
// as cid:<ContentID>.
type InlineImage struct {
	Name      string
	ContentID string
	Data      []byte
}

// Message is one outgoing email.
type Message struct {
	To      string
	Subject string
	HTML    string
	Inline  *InlineImage
}

// Mailer delivers a Message.  Implementations must be safe for concurrent
// use.
type Mailer interface {
	Send(ctx context.Context, m Message) error
}

// Sender identifies the From header.
type Sender struct {
	Name    string
	Address string
}

// buildMsg converts m into a MIME message.  Both SMTP and SES delivery go
// through it so the two transports produce the same bytes.
func buildMsg(from Sender, m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.FromFormat(from.Name, from.Address); err != nil {
		return nil, fmt.Errorf("set from: %w", err)
	}
	if err := msg.To(m.To); err != nil {
		return nil, fmt.Errorf("set to: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetDate()
	msg.SetMessageID()
	msg.SetBodyString(mail.TypeTextHTML, m.HTML)
	if m.Inline != nil && len(m.Inline.Data) > 0 {
		if err := msg.EmbedReader(m.Inline.Name, bytes.NewReader(m.Inline.Data),
			mail.WithFileContentID(m.Inline.ContentID)); err != nil {
			return nil, fmt.Errorf("embed %s: %w", m.Inline.Name, err)
		}
	}
	return msg, nil
}

// LogMailer writes messages to the log instead of sending them.  It is
// selected with MAIL_PROVIDER=log for local development.
type LogMailer struct {
	lg zerolog.Logger
}

func NewLogMailer(lg zerolog.Logger) *LogMailer {
	return &LogMailer{lg: lg.With().Str("component", "log_mailer").Logger()}
}

func (l *LogMailer) Send(ctx context.Context, m Message) error {
	ev := l.lg.Info().Str("to", m.To).Str("subject", m.Subject)
	if m.Inline != nil {
		ev = ev.Int("inline_bytes", len(m.Inline.Data))
	}
	ev.Msg("mail suppressed")
	return nil
}
