package middleware

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/raffle/common/logger"
)

// RequestContext copies the request id set by echo's RequestID middleware
// into the request context so that logger.WithContext picks it up, and
// logs one line per request.
//
// Usage:
//
//	e.Use(echomw.RequestID())
//	e.Use(middleware.RequestContext(log))
func RequestContext(log *logger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()

			requestID := req.Header.Get(echo.HeaderXRequestID)
			if requestID == "" {
				requestID = c.Response().Header().Get(echo.HeaderXRequestID)
			}
			if requestID != "" {
				ctx := context.WithValue(req.Context(), logger.RequestIDKey, requestID)
				c.SetRequest(req.WithContext(ctx))
			}

			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}

			log.WithContext(c.Request().Context()).Info("request handled",
				"method", req.Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
			)

			return nil
		}
	}
}
