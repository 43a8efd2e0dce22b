package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/alturatime/backend/cmd/alturatime/container"
	"github.com/alturatime/backend/cmd/alturatime/routes"
	"github.com/alturatime/backend/common/bootstrap"
	commonmw "github.com/alturatime/backend/common/middleware"
	"github.com/alturatime/backend/common/server"
)

func main() {
	ctx := context.Background()

	// Bootstrap common components (store, logger, cache, rate limiter)
	components, err := bootstrap.Setup(ctx, "alturatime")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap alturatime: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize service container: %v\n", err)
		os.Exit(1)
	}

	// Initialize Echo server
	e := setupEcho()

	// Setup middleware
	setupMiddleware(e, components)

	// Setup health check
	setupHealthCheck(e)

	// Register all routes
	registerRoutes(e, serviceContainer)

	// Start server
	startServer(e, components)
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, components *bootstrap.Components) {
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(commonmw.RequestContext())
	e.Use(middleware.BodyLimit(uploadBodyLimit(components.Config.Upload.MaxBytes)))
}

// uploadBodyLimit sizes the edge request cap: the payload ceiling plus room
// for the multipart envelope. The exact ceiling is enforced in the service.
func uploadBodyLimit(maxBytes int64) string {
	return strconv.FormatInt(maxBytes+64*1024, 10)
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]string{
			"status":  "ok",
			"service": "alturatime",
		})
	})
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterScheduleRoutes(e, serviceContainer)
}

// startServer runs the HTTP server until it fails or is signalled to stop
func startServer(e *echo.Echo, components *bootstrap.Components) {
	cfg := components.Config.Service
	components.Logger.Info("Starting alturatime", "port", cfg.Port)

	srv := server.New(cfg.Name, cfg.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}
