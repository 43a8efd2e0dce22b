package routes

import (
	"github.com/labstack/echo/v4"

	"github.com/alturatime/backend/cmd/alturatime/container"
	"github.com/alturatime/backend/cmd/alturatime/handlers"
	"github.com/alturatime/backend/common/middleware"
)

// RegisterScheduleRoutes registers all schedule upload and retrieval routes
func RegisterScheduleRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewScheduleHandler(c.Components, c.ScheduleService)

	// Uploads pass the service-wide cap first, then the per-client limit,
	// when rate limiting is enabled
	var uploadMW []echo.MiddlewareFunc
	if c.Components.RateLimiter != nil {
		rl := c.Components.Config.RateLimit
		uploadMW = append(uploadMW,
			middleware.GlobalRateLimitMiddleware(c.Components.RateLimiter, rl.GlobalLimit, rl.WindowSeconds),
			middleware.ClientRateLimitMiddleware(c.Components.RateLimiter, rl.UploadLimit, rl.WindowSeconds),
		)
	}

	e.GET("/", h.Index)                       // GET /
	e.POST("/upload", h.Upload, uploadMW...)  // POST /upload
	e.GET("/i/:id", h.RawSchedule)            // GET /i/<id>
	e.GET("/meta/:id", h.Meta)                // GET /meta/<id>
	e.GET("/s/:id", h.SharePage)              // GET /s/<id>
	e.GET("/status/:id", h.CallStatus)        // GET /status/<id>
}
