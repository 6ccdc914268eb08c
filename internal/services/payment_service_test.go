package services_test

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"bazaar/internal/config"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/internal/services"
	"bazaar/pkg/razorpay"
)

// stubGateway is a GatewayClient that returns a canned order or an error.
type stubGateway struct {
	order *razorpay.Order
	err   error
	calls int
}

func (g *stubGateway) CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*razorpay.Order, error) {
	g.calls++
	if g.err != nil {
		return nil, g.err
	}
	order := *g.order
	order.Amount = amount
	order.Currency = currency
	order.Receipt = receipt
	return &order, nil
}

// capturePublisher records published payment event bodies.
type capturePublisher struct {
	bodies [][]byte
	err    error
}

func (p *capturePublisher) PublishPaymentEvent(body []byte) error {
	if p.err != nil {
		return p.err
	}
	p.bodies = append(p.bodies, body)
	return nil
}

type paymentFixture struct {
	orders   *repositories.MockOrderRepository
	payments *repositories.MockPaymentRepository
	gateway  *stubGateway
	cfg      config.RazorpayConfig
	svc      *services.PaymentService
}

func newPaymentFixture(publisher services.PaymentEventPublisher) *paymentFixture {
	orders := repositories.NewMockOrderRepository()
	payments := repositories.NewMockPaymentRepository()
	tx := repositories.NewMockTxRunner(orders, payments)
	gateway := &stubGateway{order: &razorpay.Order{ID: "order_RZP001", Status: "created"}}
	cfg := config.RazorpayConfig{
		KeyID:         "rzp_test_abc",
		KeySecret:     "checkout-secret",
		WebhookSecret: "webhook-secret",
	}
	svc := services.NewPaymentService(payments, orders, gateway, publisher, tx, cfg, zap.NewNop())
	return &paymentFixture{
		orders:   orders,
		payments: payments,
		gateway:  gateway,
		cfg:      cfg,
		svc:      svc,
	}
}

func seedOrder(t *testing.T, repo *repositories.MockOrderRepository, userID primitive.ObjectID, total string) *models.Order {
	t.Helper()
	order := &models.Order{
		UserID: userID,
		Items: []models.OrderItem{
			{ProductID: primitive.NewObjectID(), Name: "Headphones", Price: mustMoney(t, total), Quantity: 1},
		},
		PaymentMethod: models.PaymentMethodRazorpay,
		ItemsPrice:    mustMoney(t, total),
		TotalPrice:    mustMoney(t, total),
		Status:        models.OrderStatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func webhookBody(t *testing.T, event, paymentID, gatewayOrderID, email string) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]interface{}{
		"event": event,
		"payload": map[string]interface{}{
			"payment": map[string]interface{}{
				"entity": map[string]interface{}{
					"id":       paymentID,
					"order_id": gatewayOrderID,
					"status":   "captured",
					"email":    email,
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func TestPaymentService_CreatePaymentOrder(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "499.50")

	intent, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	require.NoError(t, err)

	assert.Equal(t, "order_RZP001", intent.GatewayOrderID)
	// Rupees are converted to paise for the gateway.
	assert.Equal(t, int64(49950), intent.Amount)
	assert.Equal(t, "INR", intent.Currency)
	assert.Equal(t, order.ID.Hex(), intent.OrderID)
	assert.Equal(t, "rzp_test_abc", intent.Key)

	payment, err := f.payments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCreated, payment.Status)
	assert.Equal(t, "order_RZP001", payment.RazorpayOrderID)
	assert.True(t, payment.Amount.Equal(order.TotalPrice))
}

func TestPaymentService_CreatePaymentOrder_Ownership(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	order := seedOrder(t, f.orders, primitive.NewObjectID(), "100.00")

	_, err := f.svc.CreatePaymentOrder(ctx, primitive.NewObjectID(), false, order.ID)
	assert.ErrorIs(t, err, services.ErrUnauthorized)

	_, err = f.svc.CreatePaymentOrder(ctx, primitive.NewObjectID(), false, primitive.NewObjectID())
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestPaymentService_CreatePaymentOrder_GatewayDown(t *testing.T) {
	f := newPaymentFixture(nil)
	f.gateway.err = fmt.Errorf("connect: connection refused")
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "250.00")

	intent, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	assert.Nil(t, intent)
	assert.ErrorIs(t, err, services.ErrGatewayUnavailable)

	// No payment record is written when the gateway never issued an intent.
	_, err = f.payments.GetByOrderID(ctx, order.ID)
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestPaymentService_CreatePaymentOrder_RetryRepointsGatewayOrder(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "750.00")

	first, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	require.NoError(t, err)
	require.Equal(t, "order_RZP001", first.GatewayOrderID)

	// The buyer abandons the first checkout and retries; the gateway mints a
	// fresh intent.
	f.gateway.order.ID = "order_RZP002"
	second, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	require.NoError(t, err)
	require.Equal(t, "order_RZP002", second.GatewayOrderID)

	// The single payment record now follows the intent the client was handed.
	payment, err := f.payments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "order_RZP002", payment.RazorpayOrderID)
	assert.Equal(t, models.PaymentStatusCreated, payment.Status)

	// A capture webhook for the retried intent settles the order even though
	// the client verify callback never fired.
	body := webhookBody(t, "payment.captured", "pay_RETRY01", "order_RZP002", "buyer@example.com")
	require.NoError(t, f.svc.HandleWebhook(ctx, body))

	settled, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, settled.IsPaid)
	assert.Equal(t, models.OrderStatusProcessing, settled.Status)

	payment, err = f.payments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCaptured, payment.Status)
	assert.Equal(t, "pay_RETRY01", payment.RazorpayPaymentID)

	logs := f.payments.Logs("pay_RETRY01")
	require.Len(t, logs, 1)
	assert.Equal(t, models.PaymentLogProcessed, logs[0].Status)
	assert.Equal(t, order.ID.Hex(), logs[0].OrderID)
}

func TestPaymentService_VerifyPayment(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "750.00")

	_, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	require.NoError(t, err)

	payload := razorpay.CheckoutPayload("order_RZP001", "pay_123")
	in := services.VerifyPaymentInput{
		RazorpayOrderID:   "order_RZP001",
		RazorpayPaymentID: "pay_123",
		Signature:         razorpay.Sign(payload, f.cfg.KeySecret),
		OrderID:           order.ID.Hex(),
	}
	require.NoError(t, f.svc.VerifyPayment(ctx, "asha@example.com", in))

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	require.NotNil(t, stored.PaymentResult)
	assert.Equal(t, "pay_123", stored.PaymentResult.ID)
	assert.Equal(t, "asha@example.com", stored.PaymentResult.EmailAddress)
	// The client path marks paid but leaves the lifecycle status to the webhook.
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	payment, err := f.payments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCaptured, payment.Status)
	assert.Equal(t, "pay_123", payment.RazorpayPaymentID)
}

func TestPaymentService_VerifyPayment_BadSignature(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "750.00")

	in := services.VerifyPaymentInput{
		RazorpayOrderID:   "order_RZP001",
		RazorpayPaymentID: "pay_123",
		Signature:         "deadbeef",
		OrderID:           order.ID.Hex(),
	}
	err := f.svc.VerifyPayment(ctx, "asha@example.com", in)
	assert.ErrorIs(t, err, services.ErrInvalidSignature)

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)
}

func TestPaymentService_VerifyWebhookSignature(t *testing.T) {
	f := newPaymentFixture(nil)
	body := []byte(`{"event":"payment.captured"}`)

	assert.True(t, f.svc.VerifyWebhookSignature(body, razorpay.Sign(body, f.cfg.WebhookSecret)))
	assert.False(t, f.svc.VerifyWebhookSignature(body, razorpay.Sign(body, "wrong-secret")))
	assert.False(t, f.svc.VerifyWebhookSignature(body, ""))
}

func TestPaymentService_HandleWebhook_Captured(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "300.00")
	_, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	require.NoError(t, err)

	body := webhookBody(t, "payment.captured", "pay_777", "order_RZP001", "asha@example.com")
	require.NoError(t, f.svc.HandleWebhook(ctx, body))

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
	require.NotNil(t, stored.PaymentResult)
	assert.Equal(t, "pay_777", stored.PaymentResult.ID)

	payment, err := f.payments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusCaptured, payment.Status)

	logs := f.payments.Logs("pay_777")
	require.Len(t, logs, 1)
	assert.Equal(t, models.PaymentLogProcessed, logs[0].Status)
	assert.Equal(t, order.ID.Hex(), logs[0].OrderID)
}

func TestPaymentService_HandleWebhook_DuplicateDeliveryIsNoOp(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "300.00")
	_, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	require.NoError(t, err)

	body := webhookBody(t, "payment.captured", "pay_777", "order_RZP001", "asha@example.com")
	require.NoError(t, f.svc.HandleWebhook(ctx, body))

	firstPaid, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.NotNil(t, firstPaid.PaidAt)

	// Redelivery of the same event settles nothing and appends nothing.
	require.NoError(t, f.svc.HandleWebhook(ctx, body))

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, firstPaid.PaidAt, stored.PaidAt)
	assert.Len(t, f.payments.Logs("pay_777"), 1)
}

func TestPaymentService_HandleWebhook_Failed(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "300.00")
	_, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	require.NoError(t, err)

	body := webhookBody(t, "payment.failed", "pay_888", "order_RZP001", "asha@example.com")
	require.NoError(t, f.svc.HandleWebhook(ctx, body))

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)
	assert.Equal(t, models.OrderStatusPending, stored.Status)

	payment, err := f.payments.GetByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusFailed, payment.Status)

	logs := f.payments.Logs("pay_888")
	require.Len(t, logs, 1)
	assert.Equal(t, models.PaymentLogProcessed, logs[0].Status)
}

func TestPaymentService_HandleWebhook_UnresolvedOrderIsLedgeredAndDropped(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()

	body := webhookBody(t, "payment.captured", "pay_ghost", "order_unknown", "ghost@example.com")
	require.NoError(t, f.svc.HandleWebhook(ctx, body))

	logs := f.payments.Logs("pay_ghost")
	require.Len(t, logs, 1)
	assert.Equal(t, models.PaymentLogNoOrder, logs[0].Status)
	assert.Empty(t, logs[0].OrderID)

	// Redelivery hits the idempotency gate, not the unresolved path again.
	require.NoError(t, f.svc.HandleWebhook(ctx, body))
	assert.Len(t, f.payments.Logs("pay_ghost"), 1)
}

func TestPaymentService_HandleWebhook_MalformedBody(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()

	// Garbage and incomplete bodies are dropped, never retried.
	assert.NoError(t, f.svc.HandleWebhook(ctx, []byte("not json")))
	assert.NoError(t, f.svc.HandleWebhook(ctx, []byte(`{"event":"payment.captured"}`)))
}

func TestPaymentService_HandleWebhook_IgnoresUnknownEventTypes(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "300.00")
	_, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	require.NoError(t, err)

	body := webhookBody(t, "payment.authorized", "pay_999", "order_RZP001", "asha@example.com")
	require.NoError(t, f.svc.HandleWebhook(ctx, body))

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)

	// The event is still ledgered so a redelivery is a no-op.
	logs := f.payments.Logs("pay_999")
	require.Len(t, logs, 1)
	assert.Equal(t, models.PaymentLogProcessed, logs[0].Status)
}

func TestPaymentService_DispatchWebhook_PublishesOwnedCopy(t *testing.T) {
	publisher := &capturePublisher{}
	f := newPaymentFixture(publisher)

	body := []byte(`{"event":"payment.captured"}`)
	f.svc.DispatchWebhook(body)

	require.Len(t, publisher.bodies, 1)
	assert.Equal(t, body, publisher.bodies[0])

	// The published body must not alias the caller's buffer; the HTTP layer
	// recycles it after the handler returns.
	body[0] = 'X'
	assert.Equal(t, byte('{'), publisher.bodies[0][0])
}

func TestPaymentService_ClientVerifyThenWebhook(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()
	userID := primitive.NewObjectID()
	order := seedOrder(t, f.orders, userID, "750.00")
	_, err := f.svc.CreatePaymentOrder(ctx, userID, false, order.ID)
	require.NoError(t, err)

	payload := razorpay.CheckoutPayload("order_RZP001", "pay_123")
	in := services.VerifyPaymentInput{
		RazorpayOrderID:   "order_RZP001",
		RazorpayPaymentID: "pay_123",
		Signature:         razorpay.Sign(payload, f.cfg.KeySecret),
		OrderID:           order.ID.Hex(),
	}
	require.NoError(t, f.svc.VerifyPayment(ctx, "asha@example.com", in))

	// The webhook for the same capture resolves the already-paid order via
	// its payment result and moves the lifecycle forward.
	body := webhookBody(t, "payment.captured", "pay_123", "order_RZP001", "asha@example.com")
	require.NoError(t, f.svc.HandleWebhook(ctx, body))

	stored, err := f.orders.GetByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)
	assert.Equal(t, models.OrderStatusProcessing, stored.Status)
	assert.Len(t, f.payments.Logs("pay_123"), 1)
}

func TestPaymentService_HandleWebhook_PreexistingLedgerEntryWins(t *testing.T) {
	f := newPaymentFixture(nil)
	ctx := context.Background()

	// Any existing (payment id, event) row short-circuits settlement, even
	// one recorded with the failed_no_order status.
	require.NoError(t, f.payments.CreateLog(ctx, &models.PaymentLog{
		PaymentID: "pay_555",
		Event:     "payment.captured",
		Status:    models.PaymentLogNoOrder,
	}))
	body := webhookBody(t, "payment.captured", "pay_555", "order_RZP001", "asha@example.com")
	assert.NoError(t, f.svc.HandleWebhook(ctx, body))
	assert.Len(t, f.payments.Logs("pay_555"), 1)
}
