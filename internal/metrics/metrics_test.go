package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordBookingCreated(t *testing.T) {
	before := testutil.ToFloat64(bookingsCreatedTotal.WithLabelValues("ADMIN"))
	RecordBookingCreated("ADMIN")
	assert.Equal(t, before+1, testutil.ToFloat64(bookingsCreatedTotal.WithLabelValues("ADMIN")))
}

func TestRecordRedemption(t *testing.T) {
	before := testutil.ToFloat64(ticketRedemptionsTotal.WithLabelValues("already_used"))
	RecordRedemption("already_used")
	RecordRedemption("already_used")
	assert.Equal(t, before+2, testutil.ToFloat64(ticketRedemptionsTotal.WithLabelValues("already_used")))
}

func TestRecordersDoNotPanic(t *testing.T) {
	RecordBookingRejected("PUBLIC", "seat_taken")
	RecordNotification("inline", "sent")
	RecordLoginCode("sent")
	RecordRateLimited("bookings")
}

func TestHandlerExposesCounters(t *testing.T) {
	RecordBookingCreated("PUBLIC")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bookings_created_total")
}
