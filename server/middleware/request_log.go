package middleware

import (
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/focuspilot/server/internal/observability"
)

// RequestLogger attaches a RequestContext to each request, logs its outcome
// and records HTTP metrics.
func RequestLogger(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rc := observability.NewRequestContextWithID(logger, req.Header.Get(echo.HeaderXRequestID), c.Path())
			c.Response().Header().Set(echo.HeaderXRequestID, rc.RequestID)
			c.SetRequest(req.WithContext(observability.WithRequestContext(req.Context(), rc)))

			err := next(c)
			if err != nil {
				// Commit the error response so the status is known.
				c.Error(err)
			}

			status := c.Response().Status
			observability.RecordRequest(rc.Route, req.Method, status, rc.Duration())
			rc.Info("request handled",
				slog.String("method", req.Method),
				slog.Int(observability.LogFieldStatus, status),
				slog.Int64(observability.LogFieldDuration, rc.DurationMs()))
			return nil
		}
	}
}
