package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bazaar/internal/models"
)

// MongoOrderRepository is a MongoDB implementation of OrderRepository.
type MongoOrderRepository struct {
	col *mongo.Collection
}

// NewMongoOrderRepository creates a new MongoOrderRepository.
func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection(colOrders)}
}

// Create inserts a new order.
func (r *MongoOrderRepository) Create(ctx context.Context, order *models.Order) error {
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}

	if _, err := r.col.InsertOne(ctx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// GetByID retrieves a single order by its ID.
func (r *MongoOrderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %s: %w", id.Hex(), err)
	}
	return &order, nil
}

// GetByUser returns the user's orders, newest first.
func (r *MongoOrderRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.col.Find(ctx, bson.M{"user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders for user %s: %w", userID.Hex(), err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

// GetAll returns one page of all orders, newest first, with the total count.
func (r *MongoOrderRepository) GetAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := []models.Order{}
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, 0, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, total, nil
}

// UpdateStatus sets the lifecycle status, recording deliveredAt when given.
func (r *MongoOrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, deliveredAt *time.Time) error {
	set := bson.M{"status": status, "updated_at": time.Now()}
	if deliveredAt != nil {
		set["delivered_at"] = *deliveredAt
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update order %s status: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

// Cancel moves the order to CANCELLED, but only from PENDING or PROCESSING.
// The status filter is part of the update so concurrent cancels cannot both
// match.
func (r *MongoOrderRepository) Cancel(ctx context.Context, id primitive.ObjectID) error {
	filter := bson.M{
		"_id":    id,
		"status": bson.M{"$in": []string{models.OrderStatusPending, models.OrderStatusProcessing}},
	}
	update := bson.M{"$set": bson.M{"status": models.OrderStatusCancelled, "updated_at": time.Now()}}

	res, err := r.col.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to cancel order %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		count, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to cancel order %s: %w", id.Hex(), err)
		}
		if count == 0 {
			return fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
		}
		return fmt.Errorf("order %s: %w", id.Hex(), ErrInvalidState)
	}
	return nil
}

// MarkPaid records payment settlement on the order.
func (r *MongoOrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, result models.PaymentResult, paidAt time.Time, newStatus string) error {
	set := bson.M{
		"is_paid":        true,
		"paid_at":        paidAt,
		"payment_result": result,
		"updated_at":     time.Now(),
	}
	if newStatus != "" {
		set["status"] = newStatus
	}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to mark order %s paid: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

// FindByPaymentResultID resolves an order via the gateway id stored in its
// payment result.
func (r *MongoOrderRepository) FindByPaymentResultID(ctx context.Context, gatewayID string) (*models.Order, error) {
	var order models.Order
	err := r.col.FindOne(ctx, bson.M{"payment_result.id": gatewayID}).Decode(&order)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("order with payment result %s: %w", gatewayID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find order by payment result %s: %w", gatewayID, err)
	}
	return &order, nil
}
