package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/models"
)

// CartRepository defines the interface for cart data access. Each user has at
// most one cart, keyed uniquely on the owner.
type CartRepository interface {
	// GetByUser returns the user's cart, or ErrNotFound when none exists yet.
	GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error)

	// SetItems replaces the cart's line items, creating the cart if needed.
	SetItems(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) error

	// Clear empties the cart's items but keeps the document.
	Clear(ctx context.Context, userID primitive.ObjectID) error
}
