package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	bookingsCreatedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Total number of bookings persisted",
		},
		[]string{"channel"},
	)

	bookingsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_rejected_total",
			Help: "Total number of booking requests rejected before persistence",
		},
		[]string{"channel", "reason"},
	)

	ticketRedemptionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_redemptions_total",
			Help: "Ticket scans at the door by result",
		},
		[]string{"result"},
	)

	notificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_notifications_total",
			Help: "Booking confirmation dispatch outcomes",
		},
		[]string{"transport", "result"},
	)

	loginCodesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "login_codes_total",
			Help: "One-time login code events",
		},
		[]string{"event"},
	)

	rateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_rate_limited_total",
			Help: "Requests rejected by the token bucket limiter",
		},
		[]string{"scope"},
	)
)

// RecordBookingCreated records a persisted booking.
func RecordBookingCreated(channel string) {
	bookingsCreatedTotal.WithLabelValues(channel).Inc()
}

// RecordBookingRejected records a refused booking (validation, policy,
// seat_taken, duplicate_payment, dependency).
func RecordBookingRejected(channel, reason string) {
	bookingsRejectedTotal.WithLabelValues(channel, reason).Inc()
}

// RecordRedemption records a door scan: redeemed, already_used or not_found.
func RecordRedemption(result string) {
	ticketRedemptionsTotal.WithLabelValues(result).Inc()
}

// RecordNotification records whether a confirmation left the process.
func RecordNotification(transport, result string) {
	notificationsTotal.WithLabelValues(transport, result).Inc()
}

// RecordLoginCode records sent, accepted or rejected login codes.
func RecordLoginCode(event string) {
	loginCodesTotal.WithLabelValues(event).Inc()
}

// RecordRateLimited records a request refused by the limiter.
func RecordRateLimited(scope string) {
	rateLimitedTotal.WithLabelValues(scope).Inc()
}

// Handler returns the Prometheus metrics handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
