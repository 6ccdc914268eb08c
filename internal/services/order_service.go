package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// CartReader resolves a user's cart into live-priced lines.
type CartReader interface {
	ResolveItems(ctx context.Context, userID primitive.ObjectID) ([]ResolvedLine, error)
}

// OrderEventPublisher delivers order lifecycle notifications to interested
// consumers. Publishing is best effort; failures never fail the order.
type OrderEventPublisher interface {
	PublishOrderEvent(body []byte) error
}

// CreateOrderInput carries the checkout request into the order service.
// Prices are the client-declared totals; line prices are always captured from
// the live catalog, not from the client.
type CreateOrderInput struct {
	ShippingAddress models.ShippingAddress
	PaymentMethod   string
	ItemsPrice      models.Money
	TaxPrice        models.Money
	ShippingPrice   models.Money
	TotalPrice      models.Money
}

// OrderService creates orders from cart snapshots and drives their lifecycle
// transitions. All multi-document mutations run inside one transaction.
type OrderService struct {
	orderRepo   repositories.OrderRepository
	productRepo repositories.ProductRepository
	cartRepo    repositories.CartRepository
	carts       CartReader
	tx          repositories.TxRunner
	publisher   OrderEventPublisher
	logger      *zap.Logger
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	cartRepo repositories.CartRepository,
	carts CartReader,
	tx repositories.TxRunner,
	publisher OrderEventPublisher,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		cartRepo:    cartRepo,
		carts:       carts,
		tx:          tx,
		publisher:   publisher,
		logger:      logger,
	}
}

// CreateOrder turns the user's cart into an immutable PENDING order inside
// one transaction: resolve the cart, reserve stock per line, snapshot the
// lines at their current prices, persist the order, empty the cart. Any
// failure aborts the whole transaction, so no partial stock deduction or
// half-written order is ever visible.
func (s *OrderService) CreateOrder(ctx context.Context, userID primitive.ObjectID, in CreateOrderInput) (*models.Order, error) {
	var order *models.Order

	err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		lines, err := s.carts.ResolveItems(txCtx, userID)
		if err != nil {
			return err
		}

		items := make([]models.OrderItem, 0, len(lines))
		for _, line := range lines {
			if err := s.productRepo.ReserveStock(txCtx, line.Product.ID, line.Quantity); err != nil {
				if errors.Is(err, repositories.ErrInsufficientStock) {
					return &InsufficientStockError{ProductName: line.Product.Name}
				}
				return err
			}
			items = append(items, models.OrderItem{
				ProductID: line.Product.ID,
				Name:      line.Product.Name,
				Image:     line.Product.Image(),
				Price:     line.Product.Price, // captured now, never re-priced
				Quantity:  line.Quantity,
				Variant:   line.Variant,
			})
		}

		o := &models.Order{
			UserID:          userID,
			Items:           items,
			ShippingAddress: in.ShippingAddress,
			PaymentMethod:   in.PaymentMethod,
			ItemsPrice:      in.ItemsPrice,
			TaxPrice:        in.TaxPrice,
			ShippingPrice:   in.ShippingPrice,
			TotalPrice:      in.TotalPrice,
			Status:          models.OrderStatusPending,
		}
		if err := s.orderRepo.Create(txCtx, o); err != nil {
			return err
		}
		if err := s.cartRepo.Clear(txCtx, userID); err != nil {
			return err
		}

		order = o
		return nil
	})
	if err != nil {
		s.logger.Error("order creation aborted",
			zap.String("user_id", userID.Hex()),
			zap.Error(err))
		return nil, err
	}

	s.publishEvent("order.created", order)
	return order, nil
}

// GetOrderByID returns an order, enforcing that only the owner or an admin
// may read it.
func (s *OrderService) GetOrderByID(ctx context.Context, userID primitive.ObjectID, isAdmin bool, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrUnauthorized
	}
	return order, nil
}

// GetMyOrders returns the user's orders, newest first.
func (s *OrderService) GetMyOrders(ctx context.Context, userID primitive.ObjectID) ([]models.Order, error) {
	return s.orderRepo.GetByUser(ctx, userID)
}

// OrderPage is one page of the admin order listing.
type OrderPage struct {
	Orders []models.Order `json:"orders"`
	Page   int            `json:"page"`
	Pages  int            `json:"pages"`
	Total  int64          `json:"total"`
}

// GetAllOrders returns one page of all orders for the admin view.
func (s *OrderService) GetAllOrders(ctx context.Context, page, limit int) (*OrderPage, error) {
	if limit < 1 {
		limit = 20
	}
	orders, total, err := s.orderRepo.GetAll(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	pages := int((total + int64(limit) - 1) / int64(limit))
	if page < 1 {
		page = 1
	}
	return &OrderPage{Orders: orders, Page: page, Pages: pages, Total: total}, nil
}

// UpdateOrderStatus sets an order's lifecycle status (admin operation).
// Moving to DELIVERED records the delivery timestamp.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID primitive.ObjectID, status string) (*models.Order, error) {
	if !models.ValidOrderStatus(status) {
		return nil, &ValidationError{Fields: map[string]string{"status": "unknown order status"}}
	}

	var deliveredAt *time.Time
	if status == models.OrderStatusDelivered {
		now := time.Now()
		deliveredAt = &now
	}

	if err := s.orderRepo.UpdateStatus(ctx, orderID, status, deliveredAt); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	order, err := s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	s.publishEvent("order.status_updated", order)
	return order, nil
}

// CancelOrder cancels an order and restocks every line, all inside one
// transaction so a cancellation can never restock partially. Allowed only
// from PENDING or PROCESSING; anything else is ErrInvalidState.
func (s *OrderService) CancelOrder(ctx context.Context, userID primitive.ObjectID, isAdmin bool, orderID primitive.ObjectID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, orderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if !isAdmin && order.UserID != userID {
		return nil, ErrUnauthorized
	}
	if !order.CanCancel() {
		return nil, ErrInvalidState
	}

	err = s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
		// The status filter re-checks cancellability inside the transaction;
		// a racing cancel that already won makes this a no-op abort.
		if err := s.orderRepo.Cancel(txCtx, orderID); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := s.productRepo.ReleaseStock(txCtx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, repositories.ErrInvalidState) {
		return nil, ErrInvalidState
	}
	if err != nil {
		s.logger.Error("order cancellation aborted",
			zap.String("order_id", orderID.Hex()),
			zap.Error(err))
		return nil, err
	}

	order.Status = models.OrderStatusCancelled
	s.publishEvent("order.cancelled", order)
	return order, nil
}

func (s *OrderService) publishEvent(event string, order *models.Order) {
	if s.publisher == nil || order == nil {
		return
	}
	body, err := json.Marshal(map[string]interface{}{
		"event":    event,
		"order_id": order.ID.Hex(),
		"user_id":  order.UserID.Hex(),
		"status":   order.Status,
		"total":    order.TotalPrice,
	})
	if err != nil {
		s.logger.Warn("failed to marshal order event", zap.Error(err))
		return
	}
	if err := s.publisher.PublishOrderEvent(body); err != nil {
		s.logger.Warn("failed to publish order event",
			zap.String("event", event),
			zap.String("order_id", order.ID.Hex()),
			zap.Error(err))
	}
}
