package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/zesthaus/event-booking/internal/metrics"
	"github.com/zesthaus/event-booking/internal/model"
)

// Outcome is the result of one confirmation dispatch.
type Outcome struct {
	BookingID string
	To        string
	Transport string // "inline" or "queue"
	Err       error
}

// Reporter receives dispatch outcomes.  Delivery failures never reach the
// client that created the booking, so this is where they become visible.
type Reporter interface {
	Report(o Outcome)
}

// LogReporter logs outcomes and counts them in Prometheus.
type LogReporter struct {
	lg zerolog.Logger
}

func NewLogReporter(lg zerolog.Logger) *LogReporter {
	return &LogReporter{lg: lg.With().Str("component", "notify").Logger()}
}

func (r *LogReporter) Report(o Outcome) {
	if o.Err != nil {
		metrics.RecordNotification(o.Transport, "failed")
		r.lg.Error().Err(o.Err).
			Str("booking_id", o.BookingID).
			Str("to", o.To).
			Str("transport", o.Transport).
			Msg("booking confirmation not delivered")
		return
	}
	metrics.RecordNotification(o.Transport, "sent")
	r.lg.Info().
		Str("booking_id", o.BookingID).
		Str("to", o.To).
		Str("transport", o.Transport).
		Msg("booking confirmation sent")
}

// SendConfirmation renders and sends the confirmation for b.
func SendConfirmation(ctx context.Context, m Mailer, c *Composer, b model.Booking) error {
	msg, err := c.Confirmation(b)
	if err != nil {
		return err
	}
	return m.Send(ctx, msg)
}

// AsyncDispatcher sends confirmations from a goroutine so the booking
// request returns as soon as the record is persisted.
type AsyncDispatcher struct {
	mailer   Mailer
	composer *Composer
	reporter Reporter
	timeout  time.Duration
	wg       sync.WaitGroup
}

func NewAsyncDispatcher(m Mailer, c *Composer, r Reporter, timeout time.Duration) *AsyncDispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncDispatcher{mailer: m, composer: c, reporter: r, timeout: timeout}
}

// Dispatch starts delivery and returns immediately.  The request context's
// values are kept but its cancellation is not.
func (d *AsyncDispatcher) Dispatch(ctx context.Context, b model.Booking) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.timeout)
		defer cancel()
		err := SendConfirmation(ctx, d.mailer, d.composer, b)
		d.reporter.Report(Outcome{BookingID: b.ID, To: b.Purchaser.Email, Transport: "inline", Err: err})
	}()
}

// Wait blocks until in-flight deliveries finish.  Used on shutdown.
func (d *AsyncDispatcher) Wait() { d.wg.Wait() }
