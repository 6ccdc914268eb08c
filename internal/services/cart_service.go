package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// ResolvedLine is a cart line resolved against the live Product record.
type ResolvedLine struct {
	Product  models.Product  `json:"product"`
	Quantity int             `json:"quantity"`
	Variant  *models.Variant `json:"variant,omitempty"`
}

// CartView is the priced cart returned to the client. Totals are computed
// from live product prices on every read; the cart itself stores none.
type CartView struct {
	Items []ResolvedLine `json:"items"`
	Total models.Money   `json:"total"`
	Count int            `json:"count"`
}

// CartService handles cart mutations and resolves cart contents against the
// live catalog.
type CartService struct {
	cartRepo    repositories.CartRepository
	productRepo repositories.ProductRepository
	logger      *zap.Logger
}

// NewCartService creates a new CartService.
func NewCartService(cartRepo repositories.CartRepository, productRepo repositories.ProductRepository, logger *zap.Logger) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		logger:      logger,
	}
}

// ResolveItems returns the user's cart lines resolved against live Product
// records. Lines whose product no longer exists are dropped, and the
// filtering is persisted back so orphaned references don't keep reappearing.
// Returns ErrEmptyCart when no resolvable lines remain.
func (s *CartService) ResolveItems(ctx context.Context, userID primitive.ObjectID) ([]ResolvedLine, error) {
	cart, err := s.cartRepo.GetByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrEmptyCart
	}
	if err != nil {
		return nil, err
	}

	lines := make([]ResolvedLine, 0, len(cart.Items))
	kept := make([]models.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		product, err := s.productRepo.GetByID(ctx, item.ProductID)
		if errors.Is(err, repositories.ErrNotFound) {
			s.logger.Warn("dropping orphaned cart line",
				zap.String("user_id", userID.Hex()),
				zap.String("product_id", item.ProductID.Hex()))
			continue
		}
		if err != nil {
			return nil, err
		}
		lines = append(lines, ResolvedLine{Product: *product, Quantity: item.Quantity, Variant: item.Variant})
		kept = append(kept, item)
	}

	if len(kept) != len(cart.Items) {
		if err := s.cartRepo.SetItems(ctx, userID, kept); err != nil {
			return nil, fmt.Errorf("failed to persist cart filtering: %w", err)
		}
	}

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	return lines, nil
}

// GetCart returns the user's priced cart. A user with no cart yet gets an
// empty view, not an error.
func (s *CartService) GetCart(ctx context.Context, userID primitive.ObjectID) (*CartView, error) {
	lines, err := s.ResolveItems(ctx, userID)
	if errors.Is(err, ErrEmptyCart) {
		return &CartView{Items: []ResolvedLine{}}, nil
	}
	if err != nil {
		return nil, err
	}

	view := &CartView{Items: lines}
	for _, line := range lines {
		view.Total = view.Total.Add(line.Product.Price.MulInt(line.Quantity))
		view.Count += line.Quantity
	}
	return view, nil
}

// AddItem adds a product to the cart, merging quantity into an existing line
// with the same product and variant.
func (s *CartService) AddItem(ctx context.Context, userID, productID primitive.ObjectID, quantity int, variant *models.Variant) error {
	if _, err := s.productRepo.GetByID(ctx, productID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	var items []models.CartItem
	cart, err := s.cartRepo.GetByUser(ctx, userID)
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		items = []models.CartItem{}
	case err != nil:
		return err
	default:
		items = cart.Items
	}

	merged := false
	for i, item := range items {
		if item.ProductID == productID && variantEqual(item.Variant, variant) {
			items[i].Quantity += quantity
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, models.CartItem{ProductID: productID, Quantity: quantity, Variant: variant})
	}

	return s.cartRepo.SetItems(ctx, userID, items)
}

// UpdateItemQuantity sets the quantity of an existing line.
func (s *CartService) UpdateItemQuantity(ctx context.Context, userID, productID primitive.ObjectID, quantity int) error {
	cart, err := s.cartRepo.GetByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	for i, item := range cart.Items {
		if item.ProductID == productID {
			cart.Items[i].Quantity = quantity
			return s.cartRepo.SetItems(ctx, userID, cart.Items)
		}
	}
	return ErrNotFound
}

// RemoveItem deletes a line from the cart.
func (s *CartService) RemoveItem(ctx context.Context, userID, productID primitive.ObjectID) error {
	cart, err := s.cartRepo.GetByUser(ctx, userID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	kept := make([]models.CartItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	if len(kept) == len(cart.Items) {
		return ErrNotFound
	}
	return s.cartRepo.SetItems(ctx, userID, kept)
}

func variantEqual(a, b *models.Variant) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
