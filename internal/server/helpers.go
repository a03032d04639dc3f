package server

import (
	"errors"

	"pulse/internal/models"

	"github.com/gofiber/fiber/v2"
)

// respondStoreError maps a store-layer error onto the right HTTP status.
func respondStoreError(c *fiber.Ctx, err error) error {
	var appErr *models.AppError
	if !errors.As(err, &appErr) {
		return models.RespondWithError(c, fiber.StatusInternalServerError,
			models.NewInternalError(err))
	}

	status := fiber.StatusInternalServerError
	switch appErr.Code {
	case models.CodeNotFound:
		status = fiber.StatusNotFound
	case models.CodeValidation:
		status = fiber.StatusBadRequest
	case models.CodeUnauthorized, models.CodeNotAuthenticated:
		status = fiber.StatusUnauthorized
	case models.CodeCorruptRecord:
		// The record has been cleared; the client must re-authenticate.
		status = fiber.StatusUnauthorized
	}
	return models.RespondWithError(c, status, appErr)
}
