package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
)

// maxSaveAttempts bounds the read-merge-save loop when another request for
// the same user wins the race.
const maxSaveAttempts = 3

var _ ports.CartService = (*CartService)(nil)

// CartService holds the cart business rules.
type CartService struct {
	repo           ports.CartRepository
	products       ports.ProductClient
	expirationDays int64
}

func NewCartService(repo ports.CartRepository, products ports.ProductClient, expirationDays int64) *CartService {
	if expirationDays <= 0 {
		expirationDays = entity.DefaultExpirationDays
	}
	return &CartService{
		repo:           repo,
		products:       products,
		expirationDays: expirationDays,
	}
}

// AddItemToCart looks the product up, merges it into the user's cart (creating
// the cart on first use) and stores the result.
func (s *CartService) AddItemToCart(ctx context.Context, userID, productID string, quantity int) (*entity.Cart, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, entity.ErrInvalidProductID
	}
	if quantity < 1 || quantity > entity.MaxItemQuantity {
		return nil, entity.ErrInvalidQuantity
	}

	product, found, err := s.products.GetProductByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", entity.ErrProductNotFound, productID)
	}
	// Catalog responses may omit the id; the requested one is authoritative.
	product.ID = productID

	for attempt := 1; ; attempt++ {
		cart, err := s.loadOrCreate(ctx, userID)
		if err != nil {
			return nil, err
		}

		if err := cart.AddItem(product, quantity); err != nil {
			return nil, fmt.Errorf("%w: %s would exceed %d units", err, productID, entity.MaxItemQuantity)
		}
		cart.Expiration = s.expirationDays

		err = s.repo.Save(ctx, cart)
		if err == nil {
			slog.InfoContext(ctx, "item added to cart",
				"user_id", userID,
				"product_id", productID,
				"quantity", quantity,
				"item_count", cart.ItemCount(),
			)
			return cart, nil
		}
		if !errors.Is(err, entity.ErrCartConflict) || attempt >= maxSaveAttempts {
			return nil, fmt.Errorf("save cart for %s: %w", userID, err)
		}
		slog.WarnContext(ctx, "concurrent cart update, retrying", "user_id", userID, "attempt", attempt)
	}
}

func (s *CartService) GetCart(ctx context.Context, userID string) (*entity.Cart, error) {
	return s.repo.FindByID(ctx, userID)
}

// DeleteCart removes the user's cart. Deleting a missing cart is not an error.
func (s *CartService) DeleteCart(ctx context.Context, userID string) error {
	if err := s.repo.DeleteByID(ctx, userID); err != nil {
		return fmt.Errorf("delete cart for %s: %w", userID, err)
	}
	slog.InfoContext(ctx, "cart deleted", "user_id", userID)
	return nil
}

func (s *CartService) loadOrCreate(ctx context.Context, userID string) (*entity.Cart, error) {
	cart, err := s.repo.FindByID(ctx, userID)
	if errors.Is(err, entity.ErrCartNotFound) {
		return entity.NewCart(userID, s.expirationDays), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load cart for %s: %w", userID, err)
	}
	return cart, nil
}
