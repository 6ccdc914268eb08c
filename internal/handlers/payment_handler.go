package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"bazaar/internal/middleware"
	"bazaar/internal/services"
)

// WebhookSignatureHeader carries the gateway's HMAC over the raw body.
const WebhookSignatureHeader = "x-razorpay-signature"

// PaymentHandler handles HTTP requests for the payment flow.
type PaymentHandler struct {
	service     *services.PaymentService
	authService *services.AuthService
	validate    *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService, authService *services.AuthService) *PaymentHandler {
	return &PaymentHandler{
		service:     service,
		authService: authService,
		validate:    validator.New(),
	}
}

// RegisterRoutes registers the payment routes. The webhook is public; its
// authentication is the signature header.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payments")
	paymentRoutes.Post("/webhook", h.HandleWebhook)

	authed := paymentRoutes.Group("", middleware.AuthRequired(h.authService))
	authed.Post("/create-order", h.HandleCreatePaymentOrder)
	authed.Post("/verify", h.HandleVerifyPayment)
}

type createPaymentOrderRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

// HandleCreatePaymentOrder registers a gateway intent for an order.
func (h *PaymentHandler) HandleCreatePaymentOrder(c *fiber.Ctx) error {
	var req createPaymentOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, validationError(err))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err))
	}
	orderID, err := primitive.ObjectIDFromHex(req.OrderID)
	if err != nil {
		return respondError(c, services.ErrNotFound)
	}

	intent, err := h.service.CreatePaymentOrder(c.Context(), middleware.UserID(c), middleware.IsAdmin(c), orderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(intent)
}

// HandleVerifyPayment confirms a client-side checkout signature.
func (h *PaymentHandler) HandleVerifyPayment(c *fiber.Ctx) error {
	var req services.VerifyPaymentInput
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, validationError(err))
	}
	if err := h.validate.Struct(req); err != nil {
		return respondError(c, validationError(err))
	}

	if err := h.service.VerifyPayment(c.Context(), middleware.Email(c), req); err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Payment verified successfully"})
}

// HandleWebhook verifies the gateway signature over the raw body, dispatches
// settlement asynchronously and acknowledges immediately. Processing errors
// never reach the gateway; failing the acknowledgment would only trigger
// retries that cannot fix the underlying fault.
func (h *PaymentHandler) HandleWebhook(c *fiber.Ctx) error {
	signature := c.Get(WebhookSignatureHeader)
	body := c.Body()

	if !h.service.VerifyWebhookSignature(body, signature) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid signature"})
	}

	h.service.DispatchWebhook(body)
	return c.JSON(fiber.Map{"status": "ok"})
}
