package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/lyzr/raffle/common/lock"
	"github.com/lyzr/raffle/common/logger"
	"github.com/lyzr/raffle/common/repository"
	"github.com/lyzr/raffle/common/validation"
)

// respondError maps service errors onto HTTP responses. Store failures
// are logged and reported with fallback only.
func respondError(c echo.Context, log *logger.Logger, err error, fallback string) error {
	var invalid *validation.Error

	switch {
	case errors.As(err, &invalid):
		body := map[string]interface{}{"error": invalid.Error()}
		if len(invalid.Fields) > 0 {
			body["fields"] = invalid.Fields
		}
		return c.JSON(http.StatusBadRequest, body)

	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]interface{}{
			"error": "participant not found",
		})

	case errors.Is(err, repository.ErrDuplicateContact):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "contact already registered",
		})

	case errors.Is(err, lock.ErrLockHeld):
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error": "an assignment run is already in progress",
		})
	}

	log.WithContext(c.Request().Context()).Error(fallback, "error", err)
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": fallback,
	})
}
