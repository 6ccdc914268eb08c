package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/models"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
type MockOrderRepository struct {
	mu     sync.RWMutex
	orders map[primitive.ObjectID]models.Order
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[primitive.ObjectID]models.Order),
	}
}

// Create adds a new order.
func (r *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	copied := cloneOrder(order)
	return &copied, nil
}

// GetByUser returns the user's orders, newest first.
func (r *MockOrderRepository) GetByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orders := []models.Order{}
	for _, o := range r.orders {
		if o.UserID == userID {
			orders = append(orders, cloneOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.After(orders[j].CreatedAt) })
	return orders, nil
}

// GetAll returns one page of all orders and the total count.
func (r *MockOrderRepository) GetAll(ctx context.Context, page, limit int) ([]models.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	all := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		all = append(all, cloneOrder(o))
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

// UpdateStatus sets the lifecycle status.
func (r *MockOrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, deliveredAt *time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	order.Status = status
	if deliveredAt != nil {
		t := *deliveredAt
		order.DeliveredAt = &t
	}
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// Cancel moves the order to CANCELLED, filtered on PENDING or PROCESSING.
func (r *MockOrderRepository) Cancel(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	if order.Status != models.OrderStatusPending && order.Status != models.OrderStatusProcessing {
		return fmt.Errorf("order %s: %w", id.Hex(), ErrInvalidState)
	}
	order.Status = models.OrderStatusCancelled
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// MarkPaid records payment settlement on the order.
func (r *MockOrderRepository) MarkPaid(ctx context.Context, id primitive.ObjectID, result models.PaymentResult, paidAt time.Time, newStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id.Hex(), ErrNotFound)
	}
	order.IsPaid = true
	order.PaidAt = &paidAt
	order.PaymentResult = &result
	if newStatus != "" {
		order.Status = newStatus
	}
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return nil
}

// FindByPaymentResultID resolves an order by the gateway id in its payment
// result.
func (r *MockOrderRepository) FindByPaymentResultID(ctx context.Context, gatewayID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, o := range r.orders {
		if o.PaymentResult != nil && o.PaymentResult.ID == gatewayID {
			copied := cloneOrder(o)
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("order with payment result %s: %w", gatewayID, ErrNotFound)
}

// Snapshot copies the full order state.
func (r *MockOrderRepository) Snapshot() interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	copied := make(map[primitive.ObjectID]models.Order, len(r.orders))
	for id, o := range r.orders {
		copied[id] = cloneOrder(o)
	}
	return copied
}

// Restore replaces the order state with a snapshot.
func (r *MockOrderRepository) Restore(snapshot interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders = snapshot.(map[primitive.ObjectID]models.Order)
}

func cloneOrder(o models.Order) models.Order {
	copied := o
	copied.Items = append([]models.OrderItem(nil), o.Items...)
	if o.PaymentResult != nil {
		pr := *o.PaymentResult
		copied.PaymentResult = &pr
	}
	if o.PaidAt != nil {
		t := *o.PaidAt
		copied.PaidAt = &t
	}
	if o.DeliveredAt != nil {
		t := *o.DeliveredAt
		copied.DeliveredAt = &t
	}
	return copied
}
