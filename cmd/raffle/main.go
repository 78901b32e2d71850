package main

import (
	"context"
	"fmt"
	"os"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/lyzr/raffle/cmd/raffle/container"
	"github.com/lyzr/raffle/cmd/raffle/routes"
	"github.com/lyzr/raffle/common/bootstrap"
	"github.com/lyzr/raffle/common/middleware"
	"github.com/lyzr/raffle/common/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bootstrap common components (store, redis, lock, queue, cache, telemetry)
	components, err := bootstrap.Setup(ctx, "raffle")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap raffle: %v\n", err)
		os.Exit(1)
	}
	defer components.Shutdown(ctx)

	// Initialize service container (singleton pattern - all services created once)
	serviceContainer, err := container.NewContainer(components)
	if err != nil {
		components.Logger.Error("failed to initialize service container", "error", err)
		os.Exit(1)
	}

	if serviceContainer.Feed != nil {
		go serviceContainer.Feed.Run(ctx)
	}

	if serviceContainer.Notifier != nil {
		if err := serviceContainer.Notifier.Start(ctx); err != nil {
			components.Logger.Error("failed to start notifier", "error", err)
			os.Exit(1)
		}
	}

	e := setupEcho()
	setupMiddleware(e, components)
	setupHealthCheck(e, components)
	registerRoutes(e, serviceContainer)

	srv := server.New("raffle", components.Config.Service.Port, e, components.Logger)
	if err := srv.Start(); err != nil {
		components.Logger.Error("server error", "error", err)
		cancel()
		_ = components.Shutdown(ctx)
		os.Exit(1)
	}
}

// setupEcho initializes the Echo server with basic configuration
func setupEcho() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	return e
}

// setupMiddleware configures all middleware for the Echo server
func setupMiddleware(e *echo.Echo, components *bootstrap.Components) {
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestContext(components.Logger))
}

// setupHealthCheck registers the health check endpoint
func setupHealthCheck(e *echo.Echo, components *bootstrap.Components) {
	e.GET("/health", echo.WrapHandler(server.HealthHandler(components.Health)))
}

// registerRoutes registers all application routes using the service container
func registerRoutes(e *echo.Echo, serviceContainer *container.Container) {
	routes.RegisterParticipantRoutes(e, serviceContainer)
	routes.RegisterRaffleRoutes(e, serviceContainer)
}
