package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order lifecycle statuses.
const (
	OrderStatusPending    = "PENDING"
	OrderStatusProcessing = "PROCESSING"
	OrderStatusShipped    = "SHIPPED"
	OrderStatusDelivered  = "DELIVERED"
	OrderStatusCancelled  = "CANCELLED"
)

// Payment methods accepted at checkout.
const (
	PaymentMethodRazorpay = "RAZORPAY"
	PaymentMethodCOD      = "COD"
)

// OrderItem is an immutable snapshot of a purchased line, captured from the
// live Product at order-creation time. Later catalog edits never touch it.
type OrderItem struct {
	ProductID primitive.ObjectID `json:"product_id" bson:"product"`
	Name      string             `json:"name" bson:"name"`
	Image     string             `json:"image" bson:"image"`
	Price     Money              `json:"price" bson:"price"`
	Quantity  int                `json:"quantity" bson:"quantity"`
	Variant   *Variant           `json:"variant,omitempty" bson:"variant,omitempty"`
}

// ShippingAddress is the destination captured with the order.
type ShippingAddress struct {
	FullName    string `json:"full_name" bson:"full_name" validate:"required"`
	Street      string `json:"street" bson:"street" validate:"required"`
	City        string `json:"city" bson:"city" validate:"required"`
	State       string `json:"state" bson:"state" validate:"required"`
	PostalCode  string `json:"postal_code" bson:"postal_code" validate:"required"`
	Country     string `json:"country" bson:"country" validate:"required"`
	PhoneNumber string `json:"phone_number" bson:"phone_number" validate:"required"`
}

// PaymentResult summarizes the gateway outcome recorded on the order.
type PaymentResult struct {
	ID           string `json:"id" bson:"id"`
	Status       string `json:"status" bson:"status"`
	EmailAddress string `json:"email_address" bson:"email_address"`
}

// Order is created once by the order service from a priced cart snapshot and
// is never re-priced. Only status transitions and payment settlement mutate
// it afterwards.
type Order struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID          primitive.ObjectID `json:"user_id" bson:"user"`
	Items           []OrderItem        `json:"items" bson:"items"`
	ShippingAddress ShippingAddress    `json:"shipping_address" bson:"shipping_address"`
	PaymentMethod   string             `json:"payment_method" bson:"payment_method"`
	PaymentResult   *PaymentResult     `json:"payment_result,omitempty" bson:"payment_result,omitempty"`
	ItemsPrice      Money              `json:"items_price" bson:"items_price"`
	TaxPrice        Money              `json:"tax_price" bson:"tax_price"`
	ShippingPrice   Money              `json:"shipping_price" bson:"shipping_price"`
	TotalPrice      Money              `json:"total_price" bson:"total_price"`
	IsPaid          bool               `json:"is_paid" bson:"is_paid"`
	PaidAt          *time.Time         `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	Status          string             `json:"status" bson:"status"`
	DeliveredAt     *time.Time         `json:"delivered_at,omitempty" bson:"delivered_at,omitempty"`
	CreatedAt       time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at" bson:"updated_at"`
}

// CanCancel reports whether the order is still in a cancellable status.
func (o *Order) CanCancel() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// ValidOrderStatus reports whether s is one of the known lifecycle statuses.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
