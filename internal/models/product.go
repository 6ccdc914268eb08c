package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product represents a catalog entity. Stock is never written through plain
// updates in the order paths; it moves only through the repository's atomic
// ReserveStock and ReleaseStock operations, which keep it >= 0.
type Product struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name        string             `json:"name" bson:"name" validate:"required,min=3,max=200"`
	Slug        string             `json:"slug" bson:"slug"`
	Description string             `json:"description" bson:"description" validate:"omitempty,max=2000"`
	Price       Money              `json:"price" bson:"price" validate:"required"`
	Stock       int                `json:"stock" bson:"stock" validate:"gte=0"`
	Category    string             `json:"category" bson:"category"`
	Images      []string           `json:"images" bson:"images"`
	IsActive    bool               `json:"is_active" bson:"is_active"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// Image returns the primary product image, or "" when none is set.
func (p *Product) Image() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
