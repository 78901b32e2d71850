package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/raffle/cmd/raffle/container"
	"github.com/lyzr/raffle/cmd/raffle/service"
	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/models"
)

// maxPatchBytes bounds merge patch bodies
const maxPatchBytes = 64 << 10

// ParticipantHandler handles participant roster requests
type ParticipantHandler struct {
	service *service.ParticipantService
	log     *logger.Logger
}

// NewParticipantHandler creates a new participant handler
func NewParticipantHandler(c *container.Container) *ParticipantHandler {
	return &ParticipantHandler{
		service: c.ParticipantService,
		log:     c.Components.Logger,
	}
}

func participantID(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

func badID(c echo.Context) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error": "id must be a positive integer",
	})
}

// CreateParticipant registers a participant
// POST /api/v1/participants
func (h *ParticipantHandler) CreateParticipant(c echo.Context) error {
	var req models.ParticipantInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	p, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		return respondError(c, h.log, err, "failed to create participant")
	}

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"message":     "participant created",
		"participant": p,
	})
}

// ListParticipants lists every participant
// GET /api/v1/participants
func (h *ParticipantHandler) ListParticipants(c echo.Context) error {
	participants, err := h.service.List(c.Request().Context())
	if err != nil {
		return respondError(c, h.log, err, "failed to list participants")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"participants": participants,
	})
}

// GetParticipant retrieves one participant
// GET /api/v1/participants/:id
func (h *ParticipantHandler) GetParticipant(c echo.Context) error {
	id, ok := participantID(c)
	if !ok {
		return badID(c)
	}

	p, err := h.service.Get(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.log, err, "failed to get participant")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"participant": p,
	})
}

// UpdateParticipant changes the fields present in the body
// PUT /api/v1/participants/:id
func (h *ParticipantHandler) UpdateParticipant(c echo.Context) error {
	id, ok := participantID(c)
	if !ok {
		return badID(c)
	}

	var req models.ParticipantPatch
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	p, err := h.service.Update(c.Request().Context(), id, req)
	if err != nil {
		return respondError(c, h.log, err, "failed to update participant")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "participant updated",
		"participant": p,
	})
}

// PatchParticipant applies a JSON merge patch
// PATCH /api/v1/participants/:id
func (h *ParticipantHandler) PatchParticipant(c echo.Context) error {
	id, ok := participantID(c)
	if !ok {
		return badID(c)
	}

	doc, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPatchBytes))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]interface{}{
			"error": "invalid request body",
		})
	}

	p, err := h.service.Patch(c.Request().Context(), id, doc)
	if err != nil {
		return respondError(c, h.log, err, "failed to update participant")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":      "participant updated",
		"participant": p,
	})
}

// DeleteParticipant removes a participant
// DELETE /api/v1/participants/:id
func (h *ParticipantHandler) DeleteParticipant(c echo.Context) error {
	id, ok := participantID(c)
	if !ok {
		return badID(c)
	}

	if err := h.service.Delete(c.Request().Context(), id); err != nil {
		return respondError(c, h.log, err, "failed to delete participant")
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "participant deleted",
	})
}
