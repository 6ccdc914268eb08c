package services

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across the services. Handlers translate these to
// HTTP status codes with errors.Is / errors.As.
var (
	ErrNotFound           = errors.New("resource not found")
	ErrUnauthorized       = errors.New("not authorized")
	ErrEmptyCart          = errors.New("no order items found in cart")
	ErrInvalidState       = errors.New("operation not allowed in current status")
	ErrInvalidSignature   = errors.New("invalid payment signature")
	ErrGatewayUnavailable = errors.New("payment gateway error")
)

// InsufficientStockError is returned when a stock reservation's precondition
// fails. It names the product so checkout can tell the buyer which line blew.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

// ValidationError carries per-field messages produced by boundary validation
// before any domain logic runs.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %d field(s)", len(e.Fields))
}
