package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports whether the database answers.  Redis is optional
// and only reported.
type HealthHandler struct {
	DB    Pinger
	Redis *redis.Client
}

// Health handles GET /healthz.
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	body := echo.Map{"status": "ok", "database": "ok", "redis": "disabled"}
	status := http.StatusOK
	if err := h.DB.PingContext(ctx); err != nil {
		body["status"] = "unavailable"
		body["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.Redis != nil {
		body["redis"] = "ok"
		if err := h.Redis.Ping(ctx).Err(); err != nil {
			body["redis"] = err.Error()
		}
	}
	return c.JSON(status, body)
}
