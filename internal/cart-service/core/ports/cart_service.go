package ports

import (
	"context"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
)

type CartService interface {
	AddItemToCart(ctx context.Context, userID, productID string, quantity int) (*entity.Cart, error)
	GetCart(ctx context.Context, userID string) (*entity.Cart, error)
	DeleteCart(ctx context.Context, userID string) error
}
