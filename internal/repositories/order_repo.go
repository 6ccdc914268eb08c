package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/models"
)

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error)
	GetAll(ctx context.Context, page, limit int) ([]models.Order, int64, error)

	// UpdateStatus sets the lifecycle status; deliveredAt is recorded when
	// non-nil.
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, deliveredAt *time.Time) error

	// Cancel moves the order to CANCELLED, filtered on the current status
	// being PENDING or PROCESSING so racing cancels cannot both succeed.
	// ErrInvalidState when the order exists in any other status.
	Cancel(ctx context.Context, id primitive.ObjectID) error

	// MarkPaid records the payment settlement on the order. When newStatus is
	// non-empty the order's lifecycle status is advanced in the same write.
	MarkPaid(ctx context.Context, id primitive.ObjectID, result models.PaymentResult, paidAt time.Time, newStatus string) error

	// FindByPaymentResultID resolves an order by the gateway id recorded in
	// its payment result, or ErrNotFound.
	FindByPaymentResultID(ctx context.Context, gatewayID string) (*models.Order, error)
}
