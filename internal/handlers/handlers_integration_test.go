package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"bazaar/internal/config"
	"bazaar/internal/handlers"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/services"
	"bazaar/pkg/razorpay"
)

const webhookSecret = "integration-webhook-secret"

// stubGateway satisfies services.GatewayClient without network access.
type stubGateway struct{}

func (stubGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*razorpay.Order, error) {
	return &razorpay.Order{
		ID:       "order_ITEST01",
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

// capturePublisher makes webhook dispatch synchronous and observable.
type capturePublisher struct {
	bodies [][]byte
}

func (p *capturePublisher) PublishPaymentEvent(body []byte) error {
	p.bodies = append(p.bodies, body)
	return nil
}

type testEnv struct {
	app       *fiber.App
	products  *repositories.MockProductRepository
	orders    *repositories.MockOrderRepository
	payments  *repositories.MockPaymentRepository
	payment   *services.PaymentService
	auth      *services.AuthService
	published *capturePublisher
}

// setupApp wires the full HTTP surface over in-memory repositories.
func setupApp(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()

	userRepo := repositories.NewMockUserRepository()
	productRepo := repositories.NewMockProductRepository()
	cartRepo := repositories.NewMockCartRepository()
	orderRepo := repositories.NewMockOrderRepository()
	paymentRepo := repositories.NewMockPaymentRepository()
	tx := repositories.NewMockTxRunner(productRepo, cartRepo, orderRepo, paymentRepo)

	authService := services.NewAuthService(userRepo, "integration-jwt-secret")
	productService := services.NewProductService(productRepo, nil, logger)
	cartService := services.NewCartService(cartRepo, productRepo, logger)
	orderService := services.NewOrderService(orderRepo, productRepo, cartRepo, cartService, tx, nil, logger)

	published := &capturePublisher{}
	paymentService := services.NewPaymentService(paymentRepo, orderRepo, stubGateway{}, published, tx, config.RazorpayConfig{
		KeyID:         "rzp_test_integration",
		KeySecret:     "checkout-secret",
		WebhookSecret: webhookSecret,
	}, logger)

	app := fiber.New()
	apiV1 := app.Group("/api")
	handlers.NewAuthHandler(authService).RegisterRoutes(apiV1)
	handlers.NewProductHandler(productService, authService).RegisterRoutes(apiV1)
	handlers.NewCartHandler(cartService, authService).RegisterRoutes(apiV1)
	handlers.NewOrderHandler(orderService, authService).RegisterRoutes(apiV1)
	handlers.NewPaymentHandler(paymentService, authService).RegisterRoutes(apiV1)

	return &testEnv{
		app:       app,
		products:  productRepo,
		orders:    orderRepo,
		payments:  paymentRepo,
		payment:   paymentService,
		auth:      authService,
		published: published,
	}
}

func registerAndLogin(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	ctx := context.Background()
	user := &models.User{Name: "Test Buyer", Email: email, Password: "password123"}
	require.NoError(t, env.auth.RegisterUser(ctx, user))
	token, _, err := env.auth.LoginUser(ctx, email, "password123")
	require.NoError(t, err)
	return token
}

func seedCatalogProduct(t *testing.T, env *testEnv, name, price string, stock int) *models.Product {
	t.Helper()
	m, err := models.MoneyFromString(price)
	require.NoError(t, err)
	p := &models.Product{Name: name, Price: m, Stock: stock, IsActive: true}
	require.NoError(t, env.products.Create(context.Background(), p))
	return p
}

func doJSON(t *testing.T, env *testEnv, method, path, token string, payload interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, dest interface{}) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

func shippingAddressPayload() map[string]string {
	return map[string]string{
		"full_name":    "Test Buyer",
		"street":       "12 MG Road",
		"city":         "Bengaluru",
		"state":        "Karnataka",
		"postal_code":  "560001",
		"country":      "India",
		"phone_number": "+919900112233",
	}
}

func TestCheckoutFlow(t *testing.T) {
	env := setupApp(t)
	token := registerAndLogin(t, env, "buyer@example.com")
	product := seedCatalogProduct(t, env, "Espresso Maker", "2500.00", 3)

	// Add to cart.
	resp := doJSON(t, env, http.MethodPost, "/api/cart/", token, map[string]interface{}{
		"product_id": product.ID.Hex(),
		"quantity":   2,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Create the order from the cart.
	resp = doJSON(t, env, http.MethodPost, "/api/orders/", token, map[string]interface{}{
		"shipping_address": shippingAddressPayload(),
		"payment_method":   "RAZORPAY",
		"items_price":      5000,
		"total_price":      5000,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var order models.Order
	decodeBody(t, resp, &order)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 2, order.Items[0].Quantity)

	// Stock was reserved.
	p, err := env.products.GetByID(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock)

	// Register the gateway intent.
	resp = doJSON(t, env, http.MethodPost, "/api/payments/create-order", token, map[string]string{
		"order_id": order.ID.Hex(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var intent services.PaymentIntent
	decodeBody(t, resp, &intent)
	assert.Equal(t, "order_ITEST01", intent.GatewayOrderID)
	assert.Equal(t, int64(500000), intent.Amount)
	assert.Equal(t, "rzp_test_integration", intent.Key)
}

func TestCreateOrder_EmptyCart(t *testing.T) {
	env := setupApp(t)
	token := registerAndLogin(t, env, "buyer@example.com")

	resp := doJSON(t, env, http.MethodPost, "/api/orders/", token, map[string]interface{}{
		"shipping_address": shippingAddressPayload(),
		"payment_method":   "RAZORPAY",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "No order items found in cart", body["message"])
}

func TestOrders_RequireAuth(t *testing.T) {
	env := setupApp(t)

	resp := doJSON(t, env, http.MethodPost, "/api/orders/", "", map[string]interface{}{
		"shipping_address": shippingAddressPayload(),
		"payment_method":   "RAZORPAY",
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, env, http.MethodGet, "/api/orders/mine", "", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestProductWrites_RequireAdmin(t *testing.T) {
	env := setupApp(t)
	token := registerAndLogin(t, env, "buyer@example.com")

	resp := doJSON(t, env, http.MethodPost, "/api/products/", token, map[string]interface{}{
		"name":  "Contraband",
		"price": 1,
		"stock": 1,
	})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebhook_InvalidSignatureRejected(t *testing.T) {
	env := setupApp(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_ITEST01"}}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.WebhookSignatureHeader, "forged")

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, env.published.bodies)
}

func TestWebhook_ValidSignatureAcknowledged(t *testing.T) {
	env := setupApp(t)

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_ITEST01"}}}}`)
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.WebhookSignatureHeader, razorpay.Sign(body, webhookSecret))

	resp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var ack map[string]string
	decodeBody(t, resp, &ack)
	assert.Equal(t, "ok", ack["status"])

	// The verified body was handed to the settlement queue untouched.
	require.Len(t, env.published.bodies, 1)
	assert.Equal(t, body, env.published.bodies[0])
}

func TestVerifyPayment_BadSignature(t *testing.T) {
	env := setupApp(t)
	token := registerAndLogin(t, env, "buyer@example.com")

	resp := doJSON(t, env, http.MethodPost, "/api/payments/verify", token, map[string]string{
		"razorpay_order_id":   "order_ITEST01",
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  "forged",
		"order_id":            primitive.NewObjectID().Hex(),
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body map[string]interface{}
	decodeBody(t, resp, &body)
	assert.Equal(t, "Invalid payment signature", body["message"])
}

func TestWebhookSettlement_EndToEnd(t *testing.T) {
	env := setupApp(t)
	token := registerAndLogin(t, env, "buyer@example.com")
	product := seedCatalogProduct(t, env, "Desk Lamp", "899.00", 5)

	resp := doJSON(t, env, http.MethodPost, "/api/cart/", token, map[string]interface{}{
		"product_id": product.ID.Hex(),
		"quantity":   1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = doJSON(t, env, http.MethodPost, "/api/orders/", token, map[string]interface{}{
		"shipping_address": shippingAddressPayload(),
		"payment_method":   "RAZORPAY",
		"total_price":      899,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var order models.Order
	decodeBody(t, resp, &order)

	resp = doJSON(t, env, http.MethodPost, "/api/payments/create-order", token, map[string]string{
		"order_id": order.ID.Hex(),
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Deliver the capture webhook and run settlement as the consumer would.
	body := []byte(fmt.Sprintf(
		`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_e2e","order_id":%q,"status":"captured","email":"buyer@example.com"}}}}`,
		"order_ITEST01"))
	req := httptest.NewRequest(http.MethodPost, "/api/payments/webhook", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.WebhookSignatureHeader, razorpay.Sign(body, webhookSecret))
	httpResp, err := env.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, httpResp.StatusCode)

	require.Len(t, env.published.bodies, 1)
	require.NoError(t, env.payment.HandleWebhook(context.Background(), env.published.bodies[0]))

	stored, err := env.orders.GetByID(context.Background(), order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
}
