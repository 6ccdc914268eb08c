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

// MongoProductRepository is a MongoDB implementation of ProductRepository.
type MongoProductRepository struct {
	col *mongo.Collection
}

// NewMongoProductRepository creates a new MongoProductRepository.
func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{col: db.Collection(colProducts)}
}

// GetAll retrieves one page of products, newest first, and the total count.
func (r *MongoProductRepository) GetAll(ctx context.Context, page, limit int) ([]models.Product, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	total, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, 0, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, total, nil
}

// GetByID retrieves a single product by its ID.
func (r *MongoProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	var product models.Product
	err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&product)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id.Hex(), err)
	}
	return &product, nil
}

// Create inserts a new product.
func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}

	if _, err := r.col.InsertOne(ctx, product); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("product slug %q: %w", product.Slug, ErrDuplicate)
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update replaces an existing product document. Stock is deliberately left
// out of the replacement; it moves only through ReserveStock/ReleaseStock.
func (r *MongoProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = time.Now()

	update := bson.M{"$set": bson.M{
		"name":        product.Name,
		"slug":        product.Slug,
		"description": product.Description,
		"price":       product.Price,
		"category":    product.Category,
		"images":      product.Images,
		"is_active":   product.IsActive,
		"updated_at":  product.UpdatedAt,
	}}

	res, err := r.col.UpdateOne(ctx, bson.M{"_id": product.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update product %s: %w", product.ID.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", product.ID.Hex(), ErrNotFound)
	}
	return nil
}

// Delete removes a product by its ID.
func (r *MongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete product %s: %w", id.Hex(), err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}

// ReserveStock atomically decrements stock, gated on stock >= quantity. The
// filter and $inc run as one document update, so concurrent reservations can
// never drive stock negative.
func (r *MongoProductRepository) ReserveStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id, "stock": bson.M{"$gte": quantity}},
		bson.M{"$inc": bson.M{"stock": -quantity}},
	)
	if err != nil {
		return fmt.Errorf("failed to reserve stock for %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		// Distinguish a missing product from an insufficient-stock miss.
		count, err := r.col.CountDocuments(ctx, bson.M{"_id": id})
		if err != nil {
			return fmt.Errorf("failed to reserve stock for %s: %w", id.Hex(), err)
		}
		if count == 0 {
			return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
		}
		return fmt.Errorf("product %s: %w", id.Hex(), ErrInsufficientStock)
	}
	return nil
}

// ReleaseStock atomically increments stock by quantity.
func (r *MongoProductRepository) ReleaseStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	res, err := r.col.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$inc": bson.M{"stock": quantity}},
	)
	if err != nil {
		return fmt.Errorf("failed to release stock for %s: %w", id.Hex(), err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	return nil
}
