package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PaymentLogRetention is how long processed webhook events are kept before
// the store's TTL index purges them.
const PaymentLogRetention = 30 * 24 * time.Hour

// PaymentLog processing outcomes.
const (
	PaymentLogProcessed = "processed"
	PaymentLogNoOrder   = "failed_no_order"
)

// PaymentLog is an append-only record of a processed gateway event. The
// (payment id, event) pair is unique; its existence is the idempotency gate
// that makes webhook processing safe under at-least-once delivery.
type PaymentLog struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PaymentID   string             `json:"payment_id" bson:"payment_id"`
	OrderID     string             `json:"order_id,omitempty" bson:"order_id,omitempty"`
	Event       string             `json:"event" bson:"event"`
	Status      string             `json:"status" bson:"status"`
	Payload     string             `json:"payload,omitempty" bson:"payload,omitempty"`
	ProcessedAt time.Time          `json:"processed_at" bson:"processed_at"`
}
