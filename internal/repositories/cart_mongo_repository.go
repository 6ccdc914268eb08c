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

// MongoCartRepository is a MongoDB implementation of CartRepository.
type MongoCartRepository struct {
	col *mongo.Collection
}

// NewMongoCartRepository creates a new MongoCartRepository.
func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{col: db.Collection(colCarts)}
}

// GetByUser returns the user's cart.
func (r *MongoCartRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	var cart models.Cart
	err := r.col.FindOne(ctx, bson.M{"user": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("cart for user %s: %w", userID.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cart for user %s: %w", userID.Hex(), err)
	}
	return &cart, nil
}

// SetItems replaces the cart's line items, upserting the cart document.
func (r *MongoCartRepository) SetItems(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) error {
	if items == nil {
		items = []models.CartItem{}
	}
	now := time.Now()

	_, err := r.col.UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{
			"$set":         bson.M{"items": items, "updated_at": now},
			"$setOnInsert": bson.M{"user": userID, "created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to set cart items for user %s: %w", userID.Hex(), err)
	}
	return nil
}

// Clear empties the cart but keeps the document.
func (r *MongoCartRepository) Clear(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.col.UpdateOne(ctx,
		bson.M{"user": userID},
		bson.M{"$set": bson.M{"items": []models.CartItem{}, "updated_at": time.Now()}},
	)
	if err != nil {
		return fmt.Errorf("failed to clear cart for user %s: %w", userID.Hex(), err)
	}
	return nil
}
