package entity

import (
	"github.com/shopspring/decimal"
)

// DefaultExpirationDays is the lifetime of a cart counted from its last write.
const DefaultExpirationDays int64 = 7

// MaxItemQuantity caps the quantity of a single cart line.
const MaxItemQuantity = 10_000

type CartItem struct {
	ProductID   string
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

func (i CartItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart is the per-user basket. Items holds at most one entry per product.
type Cart struct {
	UserID     string
	Items      map[string]CartItem
	Expiration int64

	// Version is bumped by the store on every successful save and is used to
	// detect concurrent writers. Zero means the cart has never been stored.
	Version int64
}

func NewCart(userID string, expirationDays int64) *Cart {
	if expirationDays <= 0 {
		expirationDays = DefaultExpirationDays
	}
	return &Cart{
		UserID:     userID,
		Items:      make(map[string]CartItem),
		Expiration: expirationDays,
	}
}

// AddItem merges quantity units of product into the cart. An existing line only
// grows in quantity; the name and price captured on first insert are kept.
// The cart is left untouched and ErrInvalidQuantity returned when quantity is
// not positive or the line would exceed MaxItemQuantity.
func (c *Cart) AddItem(product Product, quantity int) error {
	if quantity < 1 || quantity > MaxItemQuantity {
		return ErrInvalidQuantity
	}
	if c.Items == nil {
		c.Items = make(map[string]CartItem)
	}

	if item, ok := c.Items[product.ID]; ok {
		if item.Quantity > MaxItemQuantity-quantity {
			return ErrInvalidQuantity
		}
		item.Quantity += quantity
		c.Items[product.ID] = item
		return nil
	}

	c.Items[product.ID] = CartItem{
		ProductID:   product.ID,
		ProductName: product.Name,
		Quantity:    quantity,
		Price:       product.Price,
	}
	return nil
}

func (c *Cart) TotalPrice() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
