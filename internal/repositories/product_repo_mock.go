package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	mu       sync.RWMutex
	products map[primitive.ObjectID]models.Product
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[primitive.ObjectID]models.Product),
	}
}

// GetAll returns one page of products and the total count.
func (r *MockProductRepository) GetAll(ctx context.Context, page, limit int) ([]models.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	all := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	return &product, nil
}

// Create adds a new product.
func (r *MockProductRepository) Create(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID.IsZero() {
		product.ID = primitive.NewObjectID()
	}
	r.products[product.ID] = *product
	return nil
}

// Update modifies an existing product. Stock is left untouched, matching the
// MongoDB implementation.
func (r *MockProductRepository) Update(ctx context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product %s: %w", product.ID.Hex(), ErrNotFound)
	}
	updated := *product
	updated.Stock = existing.Stock
	r.products[product.ID] = updated
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	delete(r.products, id)
	return nil
}

// ReserveStock decrements stock only if sufficient, under the write lock, so
// concurrent reservations observe the same all-or-nothing behavior as the
// MongoDB conditional update.
func (r *MockProductRepository) ReserveStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	if product.Stock < quantity {
		return fmt.Errorf("product %s: %w", id.Hex(), ErrInsufficientStock)
	}
	product.Stock -= quantity
	r.products[id] = product
	return nil
}

// ReleaseStock increments stock unconditionally.
func (r *MockProductRepository) ReleaseStock(ctx context.Context, id primitive.ObjectID, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product %s: %w", id.Hex(), ErrNotFound)
	}
	product.Stock += quantity
	r.products[id] = product
	return nil
}

// Snapshot copies the full product state.
func (r *MockProductRepository) Snapshot() interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	copied := make(map[primitive.ObjectID]models.Product, len(r.products))
	for id, p := range r.products {
		copied[id] = p
	}
	return copied
}

// Restore replaces the product state with a snapshot.
func (r *MockProductRepository) Restore(snapshot interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products = snapshot.(map[primitive.ObjectID]models.Product)
}
