package ports

import (
	"context"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
)

// CartRepository persists whole carts keyed by user id.
type CartRepository interface {
	// FindByID returns entity.ErrCartNotFound when nothing is stored for userID.
	FindByID(ctx context.Context, userID string) (*entity.Cart, error)
	// Save overwrites the stored cart and restarts its expiration timer. It
	// returns entity.ErrCartConflict when cart.Version is stale.
	Save(ctx context.Context, cart *entity.Cart) error
	// DeleteByID is a no-op when nothing is stored for userID.
	DeleteByID(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
}
