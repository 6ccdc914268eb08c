package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"bazaar/internal/config"
	"bazaar/internal/models"
)

// Collection names.
const (
	colUsers       = "users"
	colProducts    = "products"
	colCarts       = "carts"
	colOrders      = "orders"
	colPayments    = "payments"
	colPaymentLogs = "payment_logs"
)

// TxRunner runs a function inside one atomic transaction. The function's
// error aborts the transaction; nil commits it. Repositories called with the
// context passed to fn participate in the same transaction.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store wraps the MongoDB client and database handle shared by the
// repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewStore connects to MongoDB and returns a Store.
func NewStore(ctx context.Context, cfg *config.MongoConfig) (*Store, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(connectCtx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(cfg.Database),
	}, nil
}

// Database exposes the underlying database handle for the repositories.
func (s *Store) Database() *mongo.Database {
	return s.db
}

// WithTransaction runs fn inside a MongoDB session transaction. A non-nil
// error from fn aborts the transaction before the error is returned, so a
// failure mid-sequence leaves no partial writes.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the unique, compound and TTL indexes the data model
// relies on. Safe to call on every startup.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)

	indexes := []struct {
		collection string
		model      mongo.IndexModel
	}{
		{colUsers, mongo.IndexModel{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique}},
		{colProducts, mongo.IndexModel{Keys: bson.D{{Key: "slug", Value: 1}}, Options: unique}},
		{colCarts, mongo.IndexModel{Keys: bson.D{{Key: "user", Value: 1}}, Options: unique}},
		{colOrders, mongo.IndexModel{Keys: bson.D{{Key: "user", Value: 1}, {Key: "created_at", Value: -1}}}},
		{colOrders, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}}}},
		{colOrders, mongo.IndexModel{Keys: bson.D{{Key: "payment_result.id", Value: 1}}}},
		{colPayments, mongo.IndexModel{Keys: bson.D{{Key: "order", Value: 1}}, Options: unique}},
		{colPayments, mongo.IndexModel{Keys: bson.D{{Key: "razorpay_order_id", Value: 1}}}},
		{colPaymentLogs, mongo.IndexModel{
			Keys:    bson.D{{Key: "payment_id", Value: 1}, {Key: "event", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{colPaymentLogs, mongo.IndexModel{
			Keys:    bson.D{{Key: "processed_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(models.PaymentLogRetention / time.Second)),
		}},
	}

	for _, idx := range indexes {
		if _, err := s.db.Collection(idx.collection).Indexes().CreateOne(ctx, idx.model); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.collection, err)
		}
	}
	return nil
}

// Ping verifies the MongoDB connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

// Close disconnects the MongoDB client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
