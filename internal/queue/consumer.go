package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/zesthaus/event-booking/internal/notify"
)

// Consumer reads ConfirmationEvents and sends the confirmation email.
type Consumer struct {
	url      string
	queue    string
	mailer   notify.Mailer
	composer *notify.Composer
	reporter notify.Reporter
	lg       zerolog.Logger
}

func NewConsumer(url, queue string, m notify.Mailer, c *notify.Composer, r notify.Reporter, lg zerolog.Logger) *Consumer {
	return &Consumer{
		url:      url,
		queue:    queue,
		mailer:   m,
		composer: c,
		reporter: r,
		lg:       lg.With().Str("component", "confirmation_consumer").Logger(),
	}
}

// Run connects to RabbitMQ, declares the queue (durable) and consumes until
// ctx is cancelled.  Broker failures are retried with exponential backoff
// capped at 30s.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.lg.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consumeLoop(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.lg.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		c.lg.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := c.Handle(ctx, d.Body); err != nil {
				// reject without requeue to avoid tight redelivery loops
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// Handle decodes one message body and sends the confirmation.  The outcome
// is reported either way.
func (c *Consumer) Handle(ctx context.Context, body []byte) error {
	var ev ConfirmationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		c.lg.Error().Err(err).Msg("discarding malformed confirmation event")
		return fmt.Errorf("unmarshal: %w", err)
	}
	err := notify.SendConfirmation(ctx, c.mailer, c.composer, ev.Booking())
	c.reporter.Report(notify.Outcome{BookingID: ev.BookingID, To: ev.Email, Transport: "queue", Err: err})
	return err
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
