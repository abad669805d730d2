package domain

import (
	"time"

	"github.com/google/uuid"
)

// CartItem represents one product line in a user's cart.
// A user holds at most one row per product; adding the same product
// again increments Quantity. Quantity is always positive.
type CartItem struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	ProductID uuid.UUID `json:"product_id" db:"product_id"`
	Quantity  int       `json:"quantity" db:"quantity"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`

	// Product is populated on reads that join the products table.
	Product *Product `json:"product,omitempty" db:"-"`
}

// Subtotal returns the line total at the product's current price
func (c *CartItem) Subtotal() float64 {
	if c.Product == nil {
		return 0
	}
	return c.Product.Price * float64(c.Quantity)
}
