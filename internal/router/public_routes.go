package router

import (
	"github.com/labstack/echo/v4"

	"github.com/zesthaus/event-booking/internal/handler"
	"github.com/zesthaus/event-booking/internal/middleware"
)

// RegisterPublic registers the booking page endpoints.  Booking creation is
// rate limited and purges the seat map cache; the seat map reads are
// cached.
func RegisterPublic(e *echo.Echo, h *handler.BookingHandler, limit echo.MiddlewareFunc, cache *middleware.ResponseCache) {
	g := e.Group("/api")
	g.POST("/bookings", h.Create, limit, cache.PurgeOnSuccess())
	g.GET("/my-bookings", h.MyBookings)
	g.GET("/booked-seats", h.BookedSeats, cache.Middleware())
	g.GET("/booked-front-row-seats", h.BookedFrontRowSeats, cache.Middleware())
}
