package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/models"
)

// MockPaymentRepository is an in-memory implementation of PaymentRepository.
type MockPaymentRepository struct {
	mu       sync.RWMutex
	payments map[primitive.ObjectID]models.Payment // keyed by order id
	logs     map[string]models.PaymentLog          // keyed by paymentID|event
}

// NewMockPaymentRepository creates a new instance of MockPaymentRepository.
func NewMockPaymentRepository() *MockPaymentRepository {
	return &MockPaymentRepository{
		payments: make(map[primitive.ObjectID]models.Payment),
		logs:     make(map[string]models.PaymentLog),
	}
}

func logKey(paymentID, event string) string {
	return paymentID + "|" + event
}

// Create adds a new payment record, enforcing one per order.
func (r *MockPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.payments[payment.OrderID]; ok {
		return fmt.Errorf("payment for order %s: %w", payment.OrderID.Hex(), ErrDuplicate)
	}
	if payment.ID.IsZero() {
		payment.ID = primitive.NewObjectID()
	}
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	r.payments[payment.OrderID] = *payment
	return nil
}

// GetByOrderID returns the payment record for an order.
func (r *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID primitive.ObjectID) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[orderID]
	if !ok {
		return nil, fmt.Errorf("payment for order %s: %w", orderID.Hex(), ErrNotFound)
	}
	return &payment, nil
}

// GetByRazorpayOrderID returns the payment record keyed by the gateway order.
func (r *MockPaymentRepository) GetByRazorpayOrderID(ctx context.Context, razorpayOrderID string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.payments {
		if p.RazorpayOrderID == razorpayOrderID {
			copied := p
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("payment %s: %w", razorpayOrderID, ErrNotFound)
}

// ReattachGatewayOrder repoints the order's payment record at a new gateway
// order and resets it to `created`.
func (r *MockPaymentRepository) ReattachGatewayOrder(ctx context.Context, orderID primitive.ObjectID, razorpayOrderID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.payments[orderID]
	if !ok {
		return fmt.Errorf("payment for order %s: %w", orderID.Hex(), ErrNotFound)
	}
	p.RazorpayOrderID = razorpayOrderID
	p.Status = models.PaymentStatusCreated
	p.RazorpayPaymentID = ""
	p.RazorpaySignature = ""
	p.UpdatedAt = time.Now()
	r.payments[orderID] = p
	return nil
}

// UpdateStatusByRazorpayOrderID advances the payment's status.
func (r *MockPaymentRepository) UpdateStatusByRazorpayOrderID(ctx context.Context, razorpayOrderID, status, razorpayPaymentID, signature string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for orderID, p := range r.payments {
		if p.RazorpayOrderID == razorpayOrderID {
			p.Status = status
			if razorpayPaymentID != "" {
				p.RazorpayPaymentID = razorpayPaymentID
			}
			if signature != "" {
				p.RazorpaySignature = signature
			}
			p.UpdatedAt = time.Now()
			r.payments[orderID] = p
			return nil
		}
	}
	return fmt.Errorf("payment %s: %w", razorpayOrderID, ErrNotFound)
}

// FindLog looks up a ledger entry by its (payment id, event) identity.
func (r *MockPaymentRepository) FindLog(ctx context.Context, paymentID, event string) (*models.PaymentLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	log, ok := r.logs[logKey(paymentID, event)]
	if !ok {
		return nil, fmt.Errorf("payment log (%s, %s): %w", paymentID, event, ErrNotFound)
	}
	return &log, nil
}

// CreateLog appends a ledger entry.
func (r *MockPaymentRepository) CreateLog(ctx context.Context, log *models.PaymentLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := logKey(log.PaymentID, log.Event)
	if _, ok := r.logs[key]; ok {
		return fmt.Errorf("payment log (%s, %s): %w", log.PaymentID, log.Event, ErrDuplicate)
	}
	if log.ID.IsZero() {
		log.ID = primitive.NewObjectID()
	}
	if log.ProcessedAt.IsZero() {
		log.ProcessedAt = time.Now()
	}
	r.logs[key] = *log
	return nil
}

// Logs returns every ledger entry recorded for a payment id, test helper.
func (r *MockPaymentRepository) Logs(paymentID string) []models.PaymentLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.PaymentLog{}
	for _, l := range r.logs {
		if l.PaymentID == paymentID {
			out = append(out, l)
		}
	}
	return out
}

// Snapshot copies the full payment state.
func (r *MockPaymentRepository) Snapshot() interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payments := make(map[primitive.ObjectID]models.Payment, len(r.payments))
	for id, p := range r.payments {
		payments[id] = p
	}
	logs := make(map[string]models.PaymentLog, len(r.logs))
	for k, l := range r.logs {
		logs[k] = l
	}
	return [2]interface{}{payments, logs}
}

// Restore replaces the payment state with a snapshot.
func (r *MockPaymentRepository) Restore(snapshot interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pair := snapshot.([2]interface{})
	r.payments = pair[0].(map[primitive.ObjectID]models.Payment)
	r.logs = pair[1].(map[string]models.PaymentLog)
}
