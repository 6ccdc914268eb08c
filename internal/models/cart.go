package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Variant is an optional selector on a cart or order line.
type Variant struct {
	Size  string `json:"size,omitempty" bson:"size,omitempty"`
	Color string `json:"color,omitempty" bson:"color,omitempty"`
}

// CartItem is a single line in a cart. It carries no price; prices are
// resolved live from the Product at order-creation time.
type CartItem struct {
	ProductID primitive.ObjectID `json:"product_id" bson:"product"`
	Quantity  int                `json:"quantity" bson:"quantity" validate:"required,gte=1"`
	Variant   *Variant           `json:"variant,omitempty" bson:"variant,omitempty"`
}

// Cart holds a user's pending line items. One cart per user, keyed uniquely
// on the owner. Checkout empties the items but keeps the document.
type Cart struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    primitive.ObjectID `json:"user_id" bson:"user"`
	Items     []CartItem         `json:"items" bson:"items"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time          `json:"updated_at" bson:"updated_at"`
}
