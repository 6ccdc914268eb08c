package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"bazaar/internal/models"
)

// MongoPaymentRepository is a MongoDB implementation of PaymentRepository.
type MongoPaymentRepository struct {
	payments *mongo.Collection
	logs     *mongo.Collection
}

// NewMongoPaymentRepository creates a new MongoPaymentRepository.
func NewMongoPaymentRepository(db *mongo.Database) *MongoPaymentRepository {
	return &MongoPaymentRepository{
		payments: db.Collection(colPayments),
		logs:     db.Collection(colPaymentLogs),
	}
}

// Create inserts a new payment record.
func (r *MongoPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}

	if _, err := r.payments.InsertOne(ctx, payment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("payment for order %s: %w", payment.OrderID.Hex(), ErrDuplicate)
		}
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// GetByOrderID returns the payment record for an order.
func (r *MongoPaymentRepository) GetByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	var payment models.Payment
	err := r.payments.FindOne(ctx, bson.M{"order": orderID}).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("payment for order %s: %w", orderID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment for order %s: %w", orderID.Hex(), err)
	}
	return &payment, nil
}

// GetByRazorpayOrderID returns the payment record keyed by the gateway order.
func (r *MongoPaymentRepository) GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error) {
	var payment models.Payment
	err := r.payments.FindOne(ctx, bson.M{"razorpay_order_id": razorpayOrderID}).Decode(&payment)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("payment %s: %w", razorpayOrderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment %s: %w", razorpayOrderID, err)
	}
	return &payment, nil
}

// ReattachGatewayOrder repoints the order's payment record at a new gateway
// order and resets it to `created`.
func (r *MongoPaymentRepository) ReattachGatewayOrder(ctx context.Context, orderID primitive.ObjectID, razorpayOrderID string) error {
	update := bson.M{
		"$set": bson.M{
			"razorpay_order_id": razorpayOrderID,
			"status":            models.PaymentStatusCreated,
			"updated_at":        time.Now(),
		},
		"$unset": bson.M{
			"razorpay_payment_id": "",
			"razorpay_signature":  "",
		},
	}

	res, err := r.payments.UpdateOne(ctx, bson.M{"order": orderID}, update)
	if err != nil {
		return fmt.Errorf("failed to reattach payment for order %s: %w", orderID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("payment for order %s: %w", orderID.Hex(), ErrNotFound)
	}
	return nil
}

// UpdateStatusByRazorpayOrderID advances the payment status.
func (r *MongoPaymentRepository) UpdateStatusByRazorpayOrderID(ctx context.Context, razorpayOrderID, status, razorpayPaymentID, signature string) error {
	set := bson.M{"status": status, "updated_at": time.Now()}
	if razorpayPaymentID != "" {
		set["razorpay_payment_id"] = razorpayPaymentID
	}
	if signature != "" {
		set["razorpay_signature"] = signature
	}

	res, err := r.payments.UpdateOne(ctx, bson.M{"razorpay_order_id": razorpayOrderID}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update payment %s: %w", razorpayOrderID, err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("payment %s: %w", razorpayOrderID, ErrNotFound)
	}
	return nil
}

// FindLog looks up a ledger entry by its (payment id, event) identity.
func (r *MongoPaymentRepository) FindLog(ctx context.Context, paymentID, event string) (*models.PaymentLog, error) {
	var log models.PaymentLog
	err := r.logs.FindOne(ctx, bson.M{"payment_id": paymentID, "event": event}).Decode(&log)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("payment log (%s, %s): %w", paymentID, event, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find payment log (%s, %s): %w", paymentID, event, err)
	}
	return &log, nil
}

// CreateLog appends a ledger entry.
func (r *MongoPaymentRepository) CreateLog(ctx context.Context, log *models.PaymentLog) error {
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if log.ProcessedAt.IsZero() {
		log.ProcessedAt = time.Now()
	}

	if _, err := r.logs.InsertOne(ctx, log); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("payment log (%s, %s): %w", log.PaymentID, log.Event, ErrDuplicate)
		}
		return fmt.Errorf("failed to create payment log: %w", err)
	}
	return nil
}
