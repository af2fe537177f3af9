package router

import (
	"github.com/labstack/echo/v4"

	"github.com/zesthaus/event-booking/internal/handler"
	"github.com/zesthaus/event-booking/internal/middleware"
)

// RegisterAdmin registers the staff endpoints behind the access guard.
// Writes that add or release seats purge the seat map cache.
func RegisterAdmin(e *echo.Echo, h *handler.AdminHandler, guard *middleware.AccessGuard, cache *middleware.ResponseCache) {
	g := e.Group("/admin", guard.Middleware())
	g.POST("/offline-booking", h.OfflineBooking, cache.PurgeOnSuccess())
	g.GET("/bookings", h.List)
	g.POST("/verify-ticket", h.VerifyTicket)
	g.DELETE("/bookings/:id", h.Delete, cache.PurgeOnSuccess())
}
