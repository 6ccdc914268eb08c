package repositories

import "errors"

// Storage-level sentinel errors. Services map these onto their own taxonomy.
var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrInsufficientStock is returned by ReserveStock when the conditional
	// decrement's precondition (stock >= quantity) does not hold.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate is returned when a unique index rejects a write.
	ErrDuplicate = errors.New("duplicate document")
	// ErrInvalidState is returned by Cancel when the order's status filter
	// does not match.
	ErrInvalidState = errors.New("invalid document state")
)
