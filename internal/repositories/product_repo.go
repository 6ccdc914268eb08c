package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/models"
)

// ProductRepository defines the interface for product data access, including
// the atomic stock operations the order paths depend on.
type ProductRepository interface {
	GetAll(ctx context.Context, page, limit int) ([]models.Product, int64, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// ReserveStock decrements stock by quantity only if the current stock is
	// at least quantity, as a single conditional update. Returns
	// ErrInsufficientStock when the precondition fails (no write happens) and
	// ErrNotFound when the product does not exist.
	ReserveStock(ctx context.Context, id primitive.ObjectID, quantity int) error

	// ReleaseStock unconditionally increments stock by quantity. Used to
	// restock on cancellation.
	ReleaseStock(ctx context.Context, id primitive.ObjectID, quantity int) error
}
