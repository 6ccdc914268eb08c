package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"bazaar/internal/config"
	"bazaar/internal/models"
	"bazaar/internal/repositories"
	"bazaar/pkg/razorpay"
)

// GatewayClient creates gateway-side payment intents. Implemented by
// razorpay.Client; tests substitute a stub.
type GatewayClient interface {
	CreateOrder(ctx context.Context, amount int64, currency, receipt string) (*razorpay.Order, error)
}

// PaymentEventPublisher hands verified webhook bodies to the settlement
// worker. Implemented by rabbitmq.Client.
type PaymentEventPublisher interface {
	PublishPaymentEvent(body []byte) error
}

// PaymentIntent is the response to a create-payment-order request: the
// gateway-side intent plus the public key the frontend checkout needs.
type PaymentIntent struct {
	GatewayOrderID string `json:"id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
	OrderID        string `json:"order_id"`
	Key            string `json:"key"`
}

// VerifyPaymentInput is the client-side confirmation of a completed checkout.
type VerifyPaymentInput struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	Signature         string `json:"razorpay_signature" validate:"required"`
	OrderID           string `json:"order_id" validate:"required"`
}

const paymentCurrency = "INR"

// Gateway webhook event types.
const (
	eventPaymentCaptured = "payment.captured"
	eventPaymentFailed   = "payment.failed"
)

// PaymentService owns the payment lifecycle: it creates gateway intents,
// confirms client-side checkout signatures, and settles webhook events
// idempotently against the payment event ledger.
type PaymentService struct {
	paymentRepo repositories.PaymentRepository
	orderRepo   repositories.OrderRepository
	gateway     GatewayClient
	publisher   PaymentEventPublisher
	tx          repositories.TxRunner
	cfg         config.RazorpayConfig
	logger      *zap.Logger
}

// NewPaymentService creates a new PaymentService. publisher may be nil, in
// which case webhook settlement runs on a detached goroutine.
func NewPaymentService(
	paymentRepo repositories.PaymentRepository,
	orderRepo repositories.OrderRepository,
	gateway GatewayClient,
	publisher PaymentEventPublisher,
	tx repositories.TxRunner,
	cfg config.RazorpayConfig,
	logger *zap.Logger,
) *PaymentService {
	return &PaymentService{
		paymentRepo: paymentRepo,
		orderRepo:   orderRepo,
		gateway:     gateway,
		publisher:   publisher,
		tx:          tx,
		cfg:         cfg,
		logger:      logger,
	}
}

// CreatePaymentOrder registers the order's total with the gateway and records
// a Payment in `created` status. The amount is converted to paise, rounded to
// the nearest integer. Gateway failures surface as ErrGatewayUnavailable;
// a fake gateway id is never substituted.
func (s *PaymentService) CreatePaymentOrder(ctx context.Context, userID primitive.ObjectID, isAdmin bool, orderID primitive.ObjectID) (*PaymentIntent, error) {
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

	gwOrder, err := s.gateway.CreateOrder(ctx, order.TotalPrice.Paise(), paymentCurrency, order.ID.Hex())
	if err != nil {
		s.logger.Error("gateway order creation failed",
			zap.String("order_id", orderID.Hex()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s", ErrGatewayUnavailable, err)
	}

	payment := &models.Payment{
		OrderID:         order.ID,
		UserID:          order.UserID,
		RazorpayOrderID: gwOrder.ID,
		Amount:          order.TotalPrice,
		Currency:        paymentCurrency,
		Status:          models.PaymentStatusCreated,
	}
	if err := s.paymentRepo.Create(ctx, payment); err != nil {
		if !errors.Is(err, repositories.ErrDuplicate) {
			return nil, err
		}
		// A retried checkout minted a second gateway intent for this order.
		// Repoint the existing record at the new gateway id so a webhook for
		// the intent the client was actually handed can resolve the order.
		if err := s.paymentRepo.ReattachGatewayOrder(ctx, order.ID, gwOrder.ID); err != nil {
			return nil, err
		}
	}

	return &PaymentIntent{
		GatewayOrderID: gwOrder.ID,
		Amount:         gwOrder.Amount,
		Currency:       gwOrder.Currency,
		OrderID:        order.ID.Hex(),
		Key:            s.cfg.KeyID,
	}, nil
}

// VerifyPayment handles the client-path confirmation: it recomputes the HMAC
// over "<gateway order id>|<gateway payment id>" under the key secret and, on
// a match, marks the order paid and the payment captured. This path exists
// for instant UI feedback; the webhook remains the source of truth.
func (s *PaymentService) VerifyPayment(ctx context.Context, userEmail string, in VerifyPaymentInput) error {
	payload := razorpay.CheckoutPayload(in.RazorpayOrderID, in.RazorpayPaymentID)
	if !razorpay.VerifySignature(payload, in.Signature, s.cfg.KeySecret) {
		return ErrInvalidSignature
	}

	orderID, err := primitive.ObjectIDFromHex(in.OrderID)
	if err != nil {
		return ErrNotFound
	}

	result := models.PaymentResult{
		ID:           in.RazorpayPaymentID,
		Status:       models.PaymentStatusCaptured,
		EmailAddress: userEmail,
	}
	if err := s.orderRepo.MarkPaid(ctx, orderID, result, time.Now(), ""); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	if err := s.paymentRepo.UpdateStatusByRazorpayOrderID(ctx, in.RazorpayOrderID, models.PaymentStatusCaptured, in.RazorpayPaymentID, in.Signature); err != nil {
		// The order is marked paid; a missing payment record is recoverable
		// via the webhook path, so log instead of failing the confirmation.
		s.logger.Warn("payment record update failed on client confirmation",
			zap.String("razorpay_order_id", in.RazorpayOrderID),
			zap.Error(err))
	}
	return nil
}

// VerifyWebhookSignature checks the gateway's webhook signature header
// against the raw body. This is the sole gate for trusting an inbound event.
func (s *PaymentService) VerifyWebhookSignature(body []byte, signature string) bool {
	return razorpay.VerifySignature(body, signature, s.cfg.WebhookSecret)
}

// DispatchWebhook hands a verified webhook body off for asynchronous
// settlement so the HTTP acknowledgment returns immediately. With a queue
// configured the body is published for the settlement worker; otherwise a
// detached goroutine processes it. Failures are logged, never surfaced.
func (s *PaymentService) DispatchWebhook(body []byte) {
	// The HTTP layer reuses request buffers; keep our own copy.
	owned := append([]byte(nil), body...)

	if s.publisher != nil {
		err := s.publisher.PublishPaymentEvent(owned)
		if err == nil {
			return
		}
		s.logger.Error("failed to enqueue payment event, falling back to inline settlement", zap.Error(err))
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("webhook settlement panicked", zap.Any("panic", r))
			}
		}()
		if err := s.HandleWebhook(context.Background(), owned); err != nil {
			s.logger.Error("webhook settlement failed", zap.Error(err))
		}
	}()
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
				Status  string `json:"status"`
				Email   string `json:"email"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook settles one gateway event. It is safe under at-least-once
// delivery: the (payment id, event) ledger entry is the idempotency gate, and
// a duplicate delivery is a no-op. Events that cannot be matched to an order
// are recorded in the ledger and dropped; they never error to the caller.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte) error {
	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		s.logger.Error("unparseable webhook body", zap.Error(err))
		return nil
	}
	entity := event.Payload.Payment.Entity
	if entity.ID == "" || event.Event == "" {
		s.logger.Error("webhook body missing payment id or event type")
		return nil
	}

	// Idempotency gate.
	if _, err := s.paymentRepo.FindLog(ctx, entity.ID, event.Event); err == nil {
		s.logger.Info("webhook event already processed",
			zap.String("payment_id", entity.ID),
			zap.String("event", event.Event))
		return nil
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	order, err := s.resolveOrder(ctx, entity.ID, entity.OrderID)
	if err != nil {
		return err
	}
	if order == nil {
		s.logUnresolved(entity.ID, entity.OrderID, event.Event)
		return s.appendLog(ctx, entity.ID, "", event.Event, models.PaymentLogNoOrder, body)
	}

	switch event.Event {
	case eventPaymentCaptured:
		if !order.IsPaid {
			err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
				result := models.PaymentResult{
					ID:           entity.ID,
					Status:       models.PaymentStatusCaptured,
					EmailAddress: entity.Email,
				}
				if err := s.orderRepo.MarkPaid(txCtx, order.ID, result, time.Now(), models.OrderStatusProcessing); err != nil {
					return err
				}
				return s.paymentRepo.UpdateStatusByRazorpayOrderID(txCtx, entity.OrderID, models.PaymentStatusCaptured, entity.ID, "")
			})
			if err != nil {
				return err
			}
			s.logger.Info("payment captured",
				zap.String("order_id", order.ID.Hex()),
				zap.String("payment_id", entity.ID))
		}
	case eventPaymentFailed:
		if err := s.paymentRepo.UpdateStatusByRazorpayOrderID(ctx, entity.OrderID, models.PaymentStatusFailed, entity.ID, ""); err != nil && !errors.Is(err, repositories.ErrNotFound) {
			return err
		}
		s.logger.Info("payment failed",
			zap.String("order_id", order.ID.Hex()),
			zap.String("payment_id", entity.ID))
	default:
		s.logger.Info("ignoring webhook event type",
			zap.String("event", event.Event),
			zap.String("payment_id", entity.ID))
	}

	return s.appendLog(ctx, entity.ID, order.ID.Hex(), event.Event, models.PaymentLogProcessed, body)
}

// resolveOrder finds the order for a gateway event: first by the gateway id
// recorded in a payment result, then by following the Payment record's order
// reference. A nil order with nil error means the event is unresolvable.
func (s *PaymentService) resolveOrder(ctx context.Context, paymentID, gatewayOrderID string) (*models.Order, error) {
	order, err := s.orderRepo.FindByPaymentResultID(ctx, paymentID)
	if err == nil {
		return order, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}

	payment, err := s.paymentRepo.GetByRazorpayOrderID(ctx, gatewayOrderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	order, err = s.orderRepo.GetByID(ctx, payment.OrderID)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *PaymentService) logUnresolved(paymentID, gatewayOrderID, event string) {
	fields := []zap.Field{
		zap.String("payment_id", paymentID),
		zap.String("razorpay_order_id", gatewayOrderID),
		zap.String("event", event),
	}
	if s.cfg.AlertUnresolved {
		s.logger.Error("webhook event could not be matched to an order", fields...)
	} else {
		s.logger.Warn("webhook event could not be matched to an order", fields...)
	}
}

func (s *PaymentService) appendLog(ctx context.Context, paymentID, orderID, event, status string, payload []byte) error {
	err := s.paymentRepo.CreateLog(ctx, &models.PaymentLog{
		PaymentID:   paymentID,
		OrderID:     orderID,
		Event:       event,
		Status:      status,
		Payload:     string(payload),
		ProcessedAt: time.Now(),
	})
	if errors.Is(err, repositories.ErrDuplicate) {
		// A concurrent delivery won the race; the unique index keeps the
		// ledger single-entry per (payment id, event).
		return nil
	}
	return err
}
