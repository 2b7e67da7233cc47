package repository

import (
	"github.com/shopspring/decimal"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
)

// cartDocument is the stored representation of a cart. Prices are kept as
// decimal strings so they round-trip exactly.
type cartDocument struct {
	UserID     string                  `json:"userId"`
	Items      map[string]itemDocument `json:"items"`
	Expiration int64                   `json:"expiration"`
	Version    int64                   `json:"version"`
}

type itemDocument struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

func newCartDocument(cart *entity.Cart, version int64) cartDocument {
	items := make(map[string]itemDocument, len(cart.Items))
	for id, it := range cart.Items {
		items[id] = itemDocument{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		}
	}
	return cartDocument{
		UserID:     cart.UserID,
		Items:      items,
		Expiration: cart.Expiration,
		Version:    version,
	}
}

func (d cartDocument) toEntity() *entity.Cart {
	items := make(map[string]entity.CartItem, len(d.Items))
	for id, it := range d.Items {
		items[id] = entity.CartItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			Price:       it.Price,
		}
	}
	return &entity.Cart{
		UserID:     d.UserID,
		Items:      items,
		Expiration: d.Expiration,
		Version:    d.Version,
	}
}
