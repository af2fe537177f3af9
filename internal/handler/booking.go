package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/zesthaus/event-booking/internal/model"
	"github.com/zesthaus/event-booking/internal/service"
)

// BookingHandler serves the public booking page.
type BookingHandler struct {
	Bookings *service.BookingService
	Timeout  time.Duration
}

func NewBookingHandler(b *service.BookingService, timeout time.Duration) *BookingHandler {
	return &BookingHandler{Bookings: b, Timeout: timeout}
}

// bookingReq is the body shared by the public and offline booking routes.
type bookingReq struct {
	User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	} `json:"user"`
	Price         float64  `json:"price"`
	PaymentID     string   `json:"paymentId"`
	FrontRowSeats []string `json:"frontRowSeats"`
	FrontRowCount int      `json:"frontRowCount"`
	GeneralCount  int      `json:"generalCount"`
	VIPTable      string   `json:"vipTable"`
}

func (r bookingReq) input() service.CreateBookingInput {
	return service.CreateBookingInput{
		Name:            r.User.Name,
		Email:           r.User.Email,
		Price:           r.Price,
		PaymentRef:      r.PaymentID,
		ExclusiveSeats:  r.FrontRowSeats,
		FrontRowCount:   r.FrontRowCount,
		GeneralCount:    r.GeneralCount,
		TableAssignment: r.VIPTable,
	}
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
	var req bookingReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.Create(ctx, req.input(), model.ChannelPublic)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"message":   "Booking saved successfully!",
		"bookingId": b.ID,
		"booking":   b,
	})
}

// MyBookings handles GET /api/my-bookings?email=.
func (h *BookingHandler) MyBookings(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	list, err := h.Bookings.FindByPurchaserEmail(ctx, c.QueryParam("email"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

// BookedSeats handles GET /api/booked-seats.
func (h *BookingHandler) BookedSeats(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	claimed, err := h.Bookings.ListClaimed(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, claimed)
}

// BookedFrontRowSeats handles the older GET /api/booked-front-row-seats
// route, which lists seats only under "bookedSeats".
func (h *BookingHandler) BookedFrontRowSeats(c echo.Context) error {
	ctx, cancel := withTimeout(c, h.Timeout)
	defer cancel()

	claimed, err := h.Bookings.ListClaimed(ctx)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"bookedSeats": claimed.Seats})
}
