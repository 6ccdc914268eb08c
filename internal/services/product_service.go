package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"bazaar/internal/models"
	"bazaar/internal/repositories"
)

// Cache TTLs for catalog reads. Listings are short-lived because writes only
// invalidate per-product keys.
const (
	productCacheTTL = 5 * time.Minute
	listingCacheTTL = time.Minute
)

// ProductPage is one page of the catalog listing.
type ProductPage struct {
	Products []models.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int64            `json:"total"`
}

// ProductService handles catalog reads (cached) and admin catalog writes.
type ProductService struct {
	repo   repositories.ProductRepository
	cache  repositories.Cache // nil disables caching
	logger *zap.Logger
}

// NewProductService creates a new ProductService. cache may be nil.
func NewProductService(repo repositories.ProductRepository, cache repositories.Cache, logger *zap.Logger) *ProductService {
	return &ProductService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// GetAllProducts returns one page of the catalog, served from cache when
// possible.
func (s *ProductService) GetAllProducts(ctx context.Context, page, limit int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	cacheKey := fmt.Sprintf("products:p%d:l%d", page, limit)

	if s.cache != nil {
		var cached ProductPage
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("product listing cache read failed", zap.Error(err))
		}
	}

	products, total, err := s.repo.GetAll(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	result := &ProductPage{
		Products: products,
		Page:     page,
		Pages:    int((total + int64(limit) - 1) / int64(limit)),
		Total:    total,
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, result, listingCacheTTL); err != nil {
			s.logger.Warn("product listing cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

// GetProductByID returns a single product, served from cache when possible.
func (s *ProductService) GetProductByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	cacheKey := productCacheKey(id)

	if s.cache != nil {
		var cached models.Product
		if err := s.cache.GetJSON(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		} else if !errors.Is(err, repositories.ErrCacheMiss) {
			s.logger.Warn("product cache read failed", zap.Error(err))
		}
	}

	product, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cacheKey, product, productCacheTTL); err != nil {
			s.logger.Warn("product cache write failed", zap.Error(err))
		}
	}
	return product, nil
}

// CreateProduct adds a catalog entry (admin operation).
func (s *ProductService) CreateProduct(ctx context.Context, product *models.Product) error {
	if product.Slug == "" {
		product.Slug = slugify(product.Name)
	}
	if err := s.repo.Create(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return &ValidationError{Fields: map[string]string{"slug": "slug already in use"}}
		}
		return err
	}
	return nil
}

// UpdateProduct modifies a catalog entry and invalidates its cache key
// (admin operation). Stock is not touched here.
func (s *ProductService) UpdateProduct(ctx context.Context, product *models.Product) error {
	if err := s.repo.Update(ctx, product); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.invalidate(ctx, product.ID)
	return nil
}

// DeleteProduct removes a catalog entry and invalidates its cache key
// (admin operation).
func (s *ProductService) DeleteProduct(ctx context.Context, id primitive.ObjectID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *ProductService) invalidate(ctx context.Context, id primitive.ObjectID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, productCacheKey(id)); err != nil {
		s.logger.Warn("product cache invalidation failed",
			zap.String("product_id", id.Hex()),
			zap.Error(err))
	}
}

func productCacheKey(id primitive.ObjectID) string {
	return "product:" + id.Hex()
}

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = slugNonAlnum.ReplaceAllString(slug, "-")
	return strings.Trim(slug, "-")
}
