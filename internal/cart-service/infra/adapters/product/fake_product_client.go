package product

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
)

// Ensure fakeProductClient implements the port at compile time.
var _ ports.ProductClient = (*fakeProductClient)(nil)

// fakeProductClient serves a small fixed catalog from memory. It is intended
// for local development without a product service. Do NOT use in production.
type fakeProductClient struct {
	products map[string]entity.Product
}

// NewFakeProductClient returns a catalog where product "1" always exists.
// Extra products can be supplied to seed it.
func NewFakeProductClient(extra ...entity.Product) ports.ProductClient {
	now := time.Now().UTC()
	products := map[string]entity.Product{
		"1": {
			ID:          "1",
			Name:        "Ergonomic Steel Keyboard",
			Description: "Development catalog item",
			Price:       decimal.RequireFromString("149.90"),
			Stock:       100,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}
	for _, p := range extra {
		products[p.ID] = p
	}
	return &fakeProductClient{products: products}
}

func (f *fakeProductClient) GetProductByID(ctx context.Context, productID string) (entity.Product, bool, error) {
	p, ok := f.products[productID]
	slog.DebugContext(ctx, "fake product lookup", "product_id", productID, "found", ok)
	return p, ok, nil
}
