package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
	"github.com/jcmexdev/cart-service/internal/pkg/cache"
)

const cartOperation = "cart"

var _ ports.CartRepository = (*RedisCartRepository)(nil)

// RedisCartRepository stores each cart as a JSON document under
// "<service>:cart:<userId>" with an expiry of Cart.Expiration days.
type RedisCartRepository struct {
	client      redis.UniversalClient
	serviceName string
}

func NewRedisCartRepository(client redis.UniversalClient, serviceName string) *RedisCartRepository {
	return &RedisCartRepository{
		client:      client,
		serviceName: serviceName,
	}
}

func (r *RedisCartRepository) FindByID(ctx context.Context, userID string) (*entity.Cart, error) {
	doc, err := r.load(ctx, r.client, r.key(userID))
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, entity.ErrCartNotFound
	}
	return doc.toEntity(), nil
}

// Save writes the cart only if the stored version still equals cart.Version,
// then bumps cart.Version. The key's TTL restarts on every write.
func (r *RedisCartRepository) Save(ctx context.Context, cart *entity.Cart) error {
	key := r.key(cart.UserID)
	next := cart.Version + 1

	payload, err := json.Marshal(newCartDocument(cart, next))
	if err != nil {
		return fmt.Errorf("redis: encode cart %q: %w", cart.UserID, err)
	}

	txf := func(tx *redis.Tx) error {
		stored, err := r.load(ctx, tx, key)
		if err != nil {
			return err
		}

		var storedVersion int64
		if stored != nil {
			storedVersion = stored.Version
		}
		if storedVersion != cart.Version {
			return entity.ErrCartConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, payload, ttlFor(cart))
			return nil
		})
		return err
	}

	err = r.client.Watch(ctx, txf, key)
	switch {
	case err == nil:
		cart.Version = next
		return nil
	case errors.Is(err, redis.TxFailedErr), errors.Is(err, entity.ErrCartConflict):
		return entity.ErrCartConflict
	default:
		return fmt.Errorf("redis: save cart %q: %w", cart.UserID, err)
	}
}

func (r *RedisCartRepository) DeleteByID(ctx context.Context, userID string) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return fmt.Errorf("redis: delete cart %q: %w", userID, err)
	}
	return nil
}

func (r *RedisCartRepository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCartRepository) key(userID string) string {
	return cache.GenerateKey(r.serviceName, cartOperation, userID)
}

// getter is satisfied by both the client and a WATCH transaction.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// load returns a nil document when the key does not exist.
func (r *RedisCartRepository) load(ctx context.Context, c getter, key string) (*cartDocument, error) {
	raw, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: get %q: %w", key, err)
	}

	var doc cartDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("redis: decode %q: %w", key, err)
	}
	return &doc, nil
}

func ttlFor(cart *entity.Cart) time.Duration {
	days := cart.Expiration
	if days <= 0 {
		days = entity.DefaultExpirationDays
	}
	return time.Duration(days) * 24 * time.Hour
}
