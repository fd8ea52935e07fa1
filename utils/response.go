package utils

import (
	"errors"
	"time"

	"flow-pantry-system/models"

	"github.com/gofiber/fiber/v2"
)

func ErrorResponse(c *fiber.Ctx, message string, status int, errorType string) error {
	return c.Status(status).JSON(fiber.Map{
		"status":    status,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}

// StatusFor maps a domain error to its HTTP status and envelope type.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return fiber.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrUnauthorized):
		return fiber.StatusForbidden, "unauthorized"
	case errors.Is(err, models.ErrValidation):
		return fiber.StatusBadRequest, "validation"
	case errors.Is(err, models.ErrMalformedResponse):
		return fiber.StatusBadGateway, "malformed_response"
	}
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, "request"
	}
	return fiber.StatusInternalServerError, "internal"
}

// DomainError writes err using the envelope. Internal errors get a generic message.
func DomainError(c *fiber.Ctx, err error) error {
	status, kind := StatusFor(err)
	message := err.Error()
	if status == fiber.StatusInternalServerError {
		message = "internal server error"
	}
	return ErrorResponse(c, message, status, kind)
}
