package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/zesthaus/event-booking/internal/model"
	"github.com/zesthaus/event-booking/internal/notify"
)

// channel is the subset of *amqp.Channel the publisher and consumer use.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialFunc opens a channel and returns it with a function that closes the
// underlying connection.
type dialFunc func(url string) (channel, func() error, error)

func dialAMQP(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return ch, conn.Close, nil
}

// Publisher sends ConfirmationEvents to a durable queue.  Each publish
// opens its own connection, so a broker restart needs no reconnect logic
// here.
type Publisher struct {
	url      string
	queue    string
	dial     dialFunc
	reporter notify.Reporter
	lg       zerolog.Logger
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewPublisher(url, queue string, reporter notify.Reporter, lg zerolog.Logger) *Publisher {
	return &Publisher{
		url:      url,
		queue:    queue,
		dial:     dialAMQP,
		reporter: reporter,
		lg:       lg.With().Str("component", "confirmation_publisher").Logger(),
		timeout:  10 * time.Second,
	}
}

// Dispatch publishes the confirmation for b from a goroutine.  Publish
// failures go to the reporter; delivery results are reported by the
// consumer.
func (p *Publisher) Dispatch(ctx context.Context, b model.Booking) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
		defer cancel()
		if err := p.Publish(ctx, NewConfirmationEvent(b)); err != nil {
			p.reporter.Report(notify.Outcome{BookingID: b.ID, To: b.Purchaser.Email, Transport: "queue", Err: err})
			return
		}
		p.lg.Debug().Str("booking_id", b.ID).Msg("confirmation queued")
	}()
}

// Wait blocks until in-flight publishes finish.
func (p *Publisher) Wait() { p.wg.Wait() }

// Publish sends one event as a persistent message on the default exchange.
func (p *Publisher) Publish(ctx context.Context, ev ConfirmationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() {
		_ = ch.Close()
		_ = closeConn()
	}()

	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    ev.BookingID,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
