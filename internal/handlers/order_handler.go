package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/middleware"
	"bazaar/internal/models"
	"bazaar/internal/services"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service     *services.OrderService
	authService *services.AuthService
	validate    *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, authService *services.AuthService) *OrderHandler {
	return &OrderHandler{
		service:     service,
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the order routes.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders", middleware.AuthRequired(h.authService))
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/mine", h.HandleGetMyOrders)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Put("/:id/cancel", h.HandleCancelOrder)

	admin := orderRoutes.Group("", middleware.AdminRequired())
	admin.Get("/", h.HandleGetOrders)
	admin.Put("/:id/status", h.HandleUpdateOrderStatus)
}

type createOrderRequest struct {
	ShippingAddress models.ShippingAddress `json:"shipping_address" validate:"required"`
	PaymentMethod   string                 `json:"payment_method" validate:"required,oneof=RAZORPAY COD"`
	ItemsPrice      models.Money           `json:"items_price"`
	TaxPrice        models.Money           `json:"tax_price"`
	ShippingPrice   models.Money           `json:"shipping_price"`
	TotalPrice      models.Money           `json:"total_price"`
}

// HandleCreateOrder creates a new order from the user's cart.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, validationError(err))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err))
	}

	order, err := h.service.CreateOrder(c.Context(), middleware.UserID(c), services.CreateOrderInput{
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      req.ItemsPrice,
		TaxPrice:        req.TaxPrice,
		ShippingPrice:   req.ShippingPrice,
		TotalPrice:      req.TotalPrice,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetMyOrders returns the authenticated user's orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetMyOrders(c.Context(), middleware.UserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID returns a single order (owner or admin).
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	orderID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	order, err := h.service.GetOrderByID(c.Context(), middleware.UserID(c), middleware.IsAdmin(c), orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleGetOrders returns one page of all orders (admin).
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 20)

	result, err := h.service.GetAllOrders(c.Context(), page, limit)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// HandleUpdateOrderStatus sets an order's lifecycle status (admin).
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	orderID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, validationError(err))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err))
	}

	order, err := h.service.UpdateOrderStatus(c.Context(), orderID, req.Status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels an order and restocks its lines (owner or admin).
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	orderID, err := primitive.ObjectIDFromHex(c.Params("id"))
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	order, err := h.service.CancelOrder(c.Context(), middleware.UserID(c), middleware.IsAdmin(c), orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Order cancelled successfully",
		"order":   order,
	})
}
