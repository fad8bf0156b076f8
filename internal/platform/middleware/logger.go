package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/hemobank/hemobank/internal/platform/auth"
)

// Logger emits one structured line per request. The acting user comes
// from the auth context so every scan and state change can be traced
// back to the station operator who issued it.
func Logger(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			err := next(c)

			evt := logger.Info()
			if err != nil {
				evt = logger.Error().Err(err)
			}

			rid, _ := c.Get("request_id").(string)
			evt = evt.
				Str("request_id", rid).
				Str("method", req.Method).
				Str("route", c.Path()).
				Str("path", req.URL.Path).
				Int("status", c.Response().Status).
				Int64("bytes_out", c.Response().Size).
				Dur("latency", time.Since(start)).
				Str("remote_ip", c.RealIP())

			if actor := auth.ActorFromContext(req.Context()); actor.UserID != uuid.Nil {
				evt = evt.Str("user_id", actor.UserID.String()).Strs("roles", actor.Roles)
			}

			evt.Msg("request")
			return err
		}
	}
}
