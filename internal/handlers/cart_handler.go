package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/services"
)

// CartHandler handles HTTP requests for the authenticated user's cart.
type CartHandler struct {
	service     *services.CartService
	authService *services.AuthService
	validate    *validator.Validate
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(service *services.CartService, authService *services.AuthService) *CartHandler {
	return &CartHandler{
		service:     service,
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the cart routes. All of them require auth.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart", middleware.AuthRequired(h.authService))
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/", h.HandleAddItem)
	cartRoutes.Put("/:productId", h.HandleUpdateItem)
	cartRoutes.Delete("/:productId", h.HandleRemoveItem)
}

// HandleGetCart returns the user's priced cart.
func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	view, err := h.service.GetCart(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(view)
}

type addItemRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Quantity  int             `json:"quantity" validate:"required,gte=1"`
	Variant   *models.Variant `json:"variant,omitempty"`
}

// HandleAddItem adds a product to the cart.
func (h *CartHandler) HandleAddItem(c *fiber.Ctx) error {
	var req addItemRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, validationError(err))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err))
	}
	productID, err := primitive.ObjectIDFromHex(req.ProductID)
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	if err := h.service.AddItem(c.Context(), middleware.UserID(c), productID, req.Quantity, req.Variant); err != nil {
		return respondError(c, err)
	}
	return h.HandleGetCart(c)
}

type updateItemRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1"`
}

// HandleUpdateItem sets the quantity of a cart line.
func (h *CartHandler) HandleUpdateItem(c *fiber.Ctx) error {
	productID, err := primitive.ObjectIDFromHex(c.Params("productId"))
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	var req updateItemRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, validationError(err))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err))
	}

	if err := h.service.UpdateItemQuantity(c.Context(), middleware.UserID(c), productID, req.Quantity); err != nil {
		return respondError(c, err)
	}
	return h.HandleGetCart(c)
}

// HandleRemoveItem deletes a cart line.
func (h *CartHandler) HandleRemoveItem(c *fiber.Ctx) error {
	productID, err := primitive.ObjectIDFromHex(c.Params("productId"))
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	if err := h.service.RemoveItem(c.Context(), middleware.UserID(c), productID); err != nil {
		return respondError(c, err)
	}
	return h.HandleGetCart(c)
}
