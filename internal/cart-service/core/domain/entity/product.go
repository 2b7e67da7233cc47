package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the read-only view of a catalog entry. Only ID, Name and Price
// matter to the cart; the rest is carried for logging and debugging.
type Product struct {
	ID          string
	Name        string
	Description string
	Price       decimal.Decimal
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
