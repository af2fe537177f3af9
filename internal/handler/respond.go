package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/zesthaus/event-booking/internal/service"
)

const defaultTimeout = 5 * time.Second

var statusByKind = map[service.Kind]int{
	service.KindValidation:   http.StatusBadRequest,
	service.KindConflict:     http.StatusConflict,
	service.KindNotFound:     http.StatusNotFound,
	service.KindAlreadyUsed:  http.StatusConflict,
	service.KindPolicy:       http.StatusForbidden,
	service.KindDependency:   http.StatusBadGateway,
	service.KindUnauthorized: http.StatusUnauthorized,
}

// respondError writes err as {"error": kind, "message": text, ...details}.
// Errors that are not service errors become a logged 500.
func respondError(c echo.Context, err error) error {
	var se *service.Error
	if !errors.As(err, &se) {
		if errors.Is(err, context.DeadlineExceeded) {
			log.Error().Err(err).Str("route", c.Path()).Msg("request timed out")
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "TIMEOUT", "message": "request timed out"})
		}
		log.Error().Err(err).Str("route", c.Path()).Msg("unhandled error")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "INTERNAL", "message": "internal server error"})
	}
	status, ok := statusByKind[se.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	body := echo.Map{}
	for k, v := range se.Details {
		body[k] = v
	}
	body["error"] = string(se.Kind)
	body["message"] = se.Message
	if se.Kind == service.KindDependency {
		log.Error().Err(se.Err).Str("route", c.Path()).Msg(se.Message)
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, echo.Map{"error": string(service.KindValidation), "message": msg})
}

// withTimeout bounds storage work for one request.
func withTimeout(c echo.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = defaultTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}
