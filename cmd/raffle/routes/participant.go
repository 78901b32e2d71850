package routes

import (
	"github.com/labstack/echo/v4"
	"github.com/lyzr/raffle/cmd/raffle/container"
	"github.com/lyzr/raffle/cmd/raffle/handlers"
)

// RegisterParticipantRoutes registers the participant roster routes
func RegisterParticipantRoutes(e *echo.Echo, c *container.Container) {
	h := handlers.NewParticipantHandler(c)

	participants := e.Group("/api/v1/participants")
	{
		participants.POST("", h.CreateParticipant)       // POST /api/v1/participants
		participants.GET("", h.ListParticipants)         // GET /api/v1/participants
		participants.GET("/:id", h.GetParticipant)       // GET /api/v1/participants/7
		participants.PUT("/:id", h.UpdateParticipant)    // PUT /api/v1/participants/7
		participants.PATCH("/:id", h.PatchParticipant)   // PATCH /api/v1/participants/7
		participants.DELETE("/:id", h.DeleteParticipant) // DELETE /api/v1/participants/7
	}
}
