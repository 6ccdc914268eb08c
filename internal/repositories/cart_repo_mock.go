package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/models"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	mu    sync.RWMutex
	carts map[primitive.ObjectID]models.Cart // keyed by user id
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		carts: make(map[primitive.ObjectID]models.Cart),
	}
}

// GetByUser returns the user's cart.
func (r *MockCartRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil, fmt.Errorf("cart for user %s: %w", userID.Hex(), ErrNotFound)
	}
	copied := cart
	copied.Items = append([]models.CartItem(nil), cart.Items...)
	return &copied, nil
}

// SetItems replaces the cart's line items, creating the cart if needed.
func (r *MockCartRepository) SetItems(ctx context.Context, userID primitive.ObjectID, items []models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		cart = models.Cart{
			ID:        primitive.NewObjectID(),
			UserID:    userID,
			CreatedAt: time.Now(),
		}
	}
	cart.Items = append([]models.CartItem(nil), items...)
	cart.UpdatedAt = time.Now()
	r.carts[userID] = cart
	return nil
}

// Clear empties the cart's items but keeps the document.
func (r *MockCartRepository) Clear(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil
	}
	cart.Items = []models.CartItem{}
	cart.UpdatedAt = time.Now()
	r.carts[userID] = cart
	return nil
}

// Snapshot copies the full cart state.
func (r *MockCartRepository) Snapshot() interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	copied := make(map[primitive.ObjectID]models.Cart, len(r.carts))
	for id, c := range r.carts {
		cc := c
		cc.Items = append([]models.CartItem(nil), c.Items...)
		copied[id] = cc
	}
	return copied
}

// Restore replaces the cart state with a snapshot.
func (r *MockCartRepository) Restore(snapshot interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.carts = snapshot.(map[primitive.ObjectID]models.Cart)
}
