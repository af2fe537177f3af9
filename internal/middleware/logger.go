package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// RequestLogger writes one line per request.  Server errors log at error
// level and client errors at warn.  Run it after echo's RequestID middleware
// so the id is on the response.
func RequestLogger(lg zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				// let echo write the response so the status below is final
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			status := res.Status

			ev := lg.Info()
			switch {
			case status >= 500:
				ev = lg.Error().Err(err)
			case status >= 400:
				ev = lg.Warn()
			}
			ev.Str("method", req.Method).
				Str("path", req.URL.Path).
				Str("route", c.Path()).
				Int("status", status).
				Dur("latency", time.Since(start)).
				Int64("bytes", res.Size).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Str("ip", c.RealIP()).
				Msg("http_request")
			return nil
		}
	}
}
