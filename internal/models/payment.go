package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Payment lifecycle statuses, mirroring the gateway's own states.
const (
	PaymentStatusCreated    = "created"
	PaymentStatusAuthorized = "authorized"
	PaymentStatusCaptured   = "captured"
	PaymentStatusFailed     = "failed"
	PaymentStatusRefunded   = "refunded"
)

// Payment tracks the gateway-side lifecycle of a single order's payment.
// One per order, created when the gateway intent is registered.
type Payment struct {
	ID                primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrderID           primitive.ObjectID `json:"order_id" bson:"order"`
	UserID            primitive.ObjectID `json:"user_id" bson:"user"`
	RazorpayOrderID   string             `json:"razorpay_order_id" bson:"razorpay_order_id"`
	RazorpayPaymentID string             `json:"razorpay_payment_id,omitempty" bson:"razorpay_payment_id,omitempty"`
	RazorpaySignature string             `json:"-" bson:"razorpay_signature,omitempty"`
	Amount            Money              `json:"amount" bson:"amount"`
	Currency          string             `json:"currency" bson:"currency"`
	Status            string             `json:"status" bson:"status"`
	CreatedAt         time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at" bson:"updated_at"`
}
