package notify

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/zesthaus/event-booking/internal/config"
)

// SESAPI is the part of the SES client SESMailer uses.
type SESAPI interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// SESMailer sends raw MIME through Amazon SES.  The raw API is needed
// because the ticket is an inline image, which SendEmail cannot carry.
type SESMailer struct {
	api  SESAPI
	from Sender
}

// NewSESMailer loads AWS credentials and region from the default chain.
func NewSESMailer(ctx context.Context, cfg config.MailConfig) (*SESMailer, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSESMailerWithClient(ses.NewFromConfig(awsCfg), cfg), nil
}

func NewSESMailerWithClient(api SESAPI, cfg config.MailConfig) *SESMailer {
	return &SESMailer{api: api, from: Sender{Name: cfg.FromName, Address: cfg.FromAddress}}
}

func (s *SESMailer) Send(ctx context.Context, m Message) error {
	msg, err := buildMsg(s.from, m)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return fmt.Errorf("render mime: %w", err)
	}
	_, err = s.api.SendRawEmail(ctx, &ses.SendRawEmailInput{
		Source:       aws.String(s.from.Address),
		Destinations: []string{m.To},
		RawMessage:   &types.RawMessage{Data: buf.Bytes()},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	return nil
}
