package handlers

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"bazaar/internal/services"
)

// respondError translates a domain error into an HTTP status and JSON body.
func respondError(c *fiber.Ctx, err error) error {
	var stockErr *services.InsufficientStockError
	var validationErr *services.ValidationError

	switch {
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "Resource not found"})
	case errors.Is(err, services.ErrUnauthorized):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Not authorized"})
	case errors.Is(err, services.ErrEmptyCart):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "No order items found in cart"})
	case errors.Is(err, services.ErrInvalidState):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Operation not allowed in current status"})
	case errors.Is(err, services.ErrInvalidSignature):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid payment signature"})
	case errors.Is(err, services.ErrGatewayUnavailable):
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Payment gateway error"})
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": stockErr.Error()})
	case errors.As(err, &validationErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  validationErr.Fields,
		})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "Internal server error"})
	}
}

// validationError converts validator output into the services taxonomy so it
// renders like every other boundary failure.
func validationError(err error) error {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, e := range verrs {
			fields[e.Field()] = fmt.Sprintf("failed on the '%s' rule", e.Tag())
		}
	} else {
		fields["body"] = err.Error()
	}
	return &services.ValidationError{Fields: fields}
}
