package notify

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/zesthaus/event-booking/internal/config"
	"github.com/zesthaus/event-booking/internal/model"
)

// ticketContentID is referenced from the confirmation HTML.
const ticketContentID = "qrcode"

var confirmationTmpl = template.Must(template.New("confirmation").Parse(`
<h2>Thank you for booking with {{.Organizer}}!</h2>
<p>Dear {{.Name}},</p>
<p>Your booking for <strong>{{.Event}}</strong> is confirmed.</p>
<h3>Venue</h3>
<p><strong>{{.Venue}}</strong></p>
<h3>Date &amp; Time</h3>
<p><strong>{{.When}}</strong></p>
{{- if or .Seats .Table}}
<h3>Your places</h3>
<ul>
{{- if .Table}}<li>VIP table {{.Table}}</li>{{end}}
{{- range .Seats}}<li>Seat {{.}}</li>{{end}}
</ul>
{{- end}}
{{- if .General}}<p>General admission: {{.General}}</p>{{end}}
<p>Booking reference: <code>{{.BookingID}}</code></p>
<p>Please present the below QR code at the entrance. It is valid for one-time scan only:</p>
<img src="cid:{{.ContentID}}" alt="QR Code" style="max-width:200px;">
<p>Looking forward to welcoming you!</p>
<p>Warm regards,<br>{{.Organizer}} Team</p>
<h3>Terms &amp; Conditions</h3>
<ul>
  <li>Tickets are non-refundable and non-transferable.</li>
  <li>Entry is subject to QR code scanning and security checks.</li>
  <li>ID proof may be required.</li>
  <li>No outside food, drinks, or prohibited items allowed.</li>
  <li>Only age 16+ allowed. Schedule subject to change.</li>
</ul>
`))

var loginCodeTmpl = template.Must(template.New("login_code").Parse(
	`<p>Your login code is: <b>{{.Code}}</b>. It is valid for {{.Minutes}} minutes.</p>`))

// Composer renders the service's emails from templates and event details.
type Composer struct {
	organizer string
	event     string
	venue     string
	when      string
}

func NewComposer(cfg config.MailConfig) *Composer {
	return &Composer{
		organizer: cfg.FromName,
		event:     cfg.EventName,
		venue:     cfg.EventVenue,
		when:      cfg.EventDate,
	}
}

// Confirmation renders the booking confirmation with the ticket inline.
func (c *Composer) Confirmation(b model.Booking) (Message, error) {
	var table string
	if b.TableAssignment != nil {
		table = *b.TableAssignment
	}
	data := struct {
		Organizer, Name, Event, Venue, When, BookingID, Table, ContentID string
		Seats                                                            []string
		General                                                          int
	}{
		Organizer: c.organizer,
		Name:      b.Purchaser.DisplayName(),
		Event:     c.event,
		Venue:     c.venue,
		When:      c.when,
		BookingID: b.ID,
		Table:     table,
		ContentID: ticketContentID,
		Seats:     b.ExclusiveSeats,
		General:   b.GeneralCount,
	}
	var buf bytes.Buffer
	if err := confirmationTmpl.Execute(&buf, data); err != nil {
		return Message{}, fmt.Errorf("render confirmation: %w", err)
	}
	return Message{
		To:      b.Purchaser.Email,
		Subject: fmt.Sprintf("%s – Booking Confirmation", c.event),
		HTML:    strings.TrimSpace(buf.String()),
		Inline: &InlineImage{
			Name:      "qrcode.png",
			ContentID: ticketContentID,
			Data:      b.Credential,
		},
	}, nil
}

// LoginCode renders the one-time login code email.
func (c *Composer) LoginCode(email, code string, ttl time.Duration) (Message, error) {
	minutes := int(ttl.Round(time.Minute) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	var buf bytes.Buffer
	if err := loginCodeTmpl.Execute(&buf, struct {
		Code    string
		Minutes int
	}{code, minutes}); err != nil {
		return Message{}, fmt.Errorf("render login code: %w", err)
	}
	return Message{
		To:      email,
		Subject: fmt.Sprintf("Your login code for %s", c.organizer),
		HTML:    buf.String(),
	}, nil
}
