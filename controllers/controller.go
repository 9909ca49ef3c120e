package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"salescrm/service"
)

// statusFromError maps service-layer errors to HTTP status codes
func statusFromError(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidOperation):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrInvalidState):
		return fiber.StatusConflict
	case errors.Is(err, service.ErrConstraintViolation):
		return fiber.StatusUnprocessableEntity
	default:
		return fiber.StatusInternalServerError
	}
}
