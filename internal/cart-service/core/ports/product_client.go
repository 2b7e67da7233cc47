package ports

import (
	"context"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
)

type ProductClient interface {
	// GetProductByID reports found=false, with a nil error, when the catalog
	// has no such product. Dependency failures wrap entity.ErrServiceUnavailable.
	GetProductByID(ctx context.Context, productID string) (product entity.Product, found bool, err error)
}
