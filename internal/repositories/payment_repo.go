package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/models"
)

// PaymentRepository defines the interface for payment records and the
// append-only payment event ledger.
type PaymentRepository interface {
	Create(ctx context.Context, payment *models.Payment) error
	GetByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error)
	GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error)

	// ReattachGatewayOrder points the order's existing payment record at a
	// freshly minted gateway order and resets it to `created`, dropping any
	// stale captured id and signature. Used when a checkout retry creates a
	// second gateway intent for the same order.
	ReattachGatewayOrder(ctx context.Context, orderID primitive.ObjectID, razorpayOrderID string) error

	// UpdateStatusByRazorpayOrderID advances the payment's status and records
	// the captured payment id and signature when non-empty.
	UpdateStatusByRazorpayOrderID(ctx context.Context, razorpayOrderID, status, razorpayPaymentID, signature string) error

	// FindLog looks up a ledger entry by its (payment id, event) identity, or
	// ErrNotFound. Existence of an entry is the webhook idempotency gate.
	FindLog(ctx context.Context, paymentID, event string) (*models.PaymentLog, error)

	// CreateLog appends a ledger entry. ErrDuplicate when the (payment id,
	// event) pair was already recorded.
	CreateLog(ctx context.Context, log *models.PaymentLog) error
}
