package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/raffle/cmd/raffle/container"
	"github.com/lyzr/raffle/cmd/raffle/handlers"
)

// RegisterRaffleRoutes registers assignment generation and read-out
func RegisterRaffleRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewRaffleHandler(c)

	raffle := e.Group("/api/v1/raffle")
	{
		raffle.POST("", h.GenerateAssignments)   // POST /api/v1/raffle
		raffle.GET("", h.GetAssignments)         // GET /api/v1/raffle
		raffle.GET("/feed", h.StreamAssignments) // GET /api/v1/raffle/feed?contact=
	}
}
