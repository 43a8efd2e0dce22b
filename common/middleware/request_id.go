package middleware

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/alturatime/backend/common/logger"
)

// RequestContext copies the request id assigned by echo's RequestID
// middleware into the request context, where logger.WithContext picks it
// up. Must be registered after RequestID.
func RequestContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			requestID := c.Response().Header().Get(echo.HeaderXRequestID)
			if requestID != "" {
				ctx := context.WithValue(c.Request().Context(), logger.RequestIDKey, requestID)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}
}
