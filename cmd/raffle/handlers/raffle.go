package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/raffle/cmd/raffle/container"
	"github.com/lyzr/raffle/cmd/raffle/feed"
	"github.com/lyzr/raffle/cmd/raffle/service"
	"github.com/lyzr/raffle/common/logger"
)

// RaffleHandler handles assignment generation and read-out
type RaffleHandler struct {
	service *service.RaffleService
	feed    *feed.Hub
	log     *logger.Logger
}

// NewRaffleHandler creates a new raffle handler
func NewRaffleHandler(c *container.Container) *RaffleHandler {
	return &RaffleHandler{
		service: c.RaffleService,
		feed:    c.Feed,
		log:     c.Components.Logger,
	}
}

// GenerateAssignments draws a new assignment over all participants
// POST /api/v1/raffle
func (h *RaffleHandler) GenerateAssignments(c echo.Context) error {
	generationID, pairings, err := h.service.Generate(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err, "failed to generate assignments")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"generation_id": generationID,
		"assignments":   pairings,
	})
}

// GetAssignments returns the current assignment sorted by giver name
// GET /api/v1/raffle
func (h *RaffleHandler) GetAssignments(c echo.Context) error {
	rows, err := h.service.Read(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err, "failed to read assignments")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"assignments": rows,
	})
}

// StreamAssignments upgrades to a websocket that receives the caller's
// assignment after every generation run
// GET /api/v1/raffle/feed?contact=alice@example.com
func (h *RaffleHandler) StreamAssignments(c echo.Context) error {
	if h.feed == nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
			"error": "assignment feed is disabled",
		})
	}

	contact := c.QueryParam("contact")
	if contact == "" {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "contact query parameter required",
		})
	}

	if err := feed.Serve(h.feed, c.Response(), c.Request(), contact); err != nil {
		h.log.Warn("feed connection rejected", "contact", contact, "error", err)
	}
	return nil
}
