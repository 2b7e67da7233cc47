package repository

import (
	"context"
	"sync"
	"time"

	"github.com/jcmexdev/cart-service/internal/cart-service/core/domain/entity"
	"github.com/jcmexdev/cart-service/internal/cart-service/core/ports"
)

var _ ports.CartRepository = (*MemoryCartRepository)(nil)

// MemoryCartRepository keeps carts in process memory. It honours expiry and
// version checks like the redis store and is meant for local runs and tests.
type MemoryCartRepository struct {
	mu    sync.Mutex
	carts map[string]memoryEntry
	now   func() time.Time
}

type memoryEntry struct {
	doc       cartDocument
	expiresAt time.Time
}

func NewMemoryCartRepository() *MemoryCartRepository {
	return &MemoryCartRepository{
		carts: make(map[string]memoryEntry),
		now:   time.Now,
	}
}

func (m *MemoryCartRepository) FindByID(ctx context.Context, userID string) (*entity.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.live(userID)
	if !ok {
		return nil, entity.ErrCartNotFound
	}
	return entry.doc.toEntity(), nil
}

func (m *MemoryCartRepository) Save(ctx context.Context, cart *entity.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var storedVersion int64
	if entry, ok := m.live(cart.UserID); ok {
		storedVersion = entry.doc.Version
	}
	if storedVersion != cart.Version {
		return entity.ErrCartConflict
	}

	next := cart.Version + 1
	m.carts[cart.UserID] = memoryEntry{
		doc:       newCartDocument(cart, next),
		expiresAt: m.now().Add(ttlFor(cart)),
	}
	cart.Version = next
	return nil
}

func (m *MemoryCartRepository) DeleteByID(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.carts, userID)
	return nil
}

func (m *MemoryCartRepository) Ping(ctx context.Context) error { return nil }

// live must be called with mu held. Expired entries are dropped on access.
func (m *MemoryCartRepository) live(userID string) (memoryEntry, bool) {
	entry, ok := m.carts[userID]
	if !ok {
		return memoryEntry{}, false
	}
	if !m.now().Before(entry.expiresAt) {
		delete(m.carts, userID)
		return memoryEntry{}, false
	}
	return entry, true
}
