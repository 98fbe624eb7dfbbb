package cache

import (
	"context"
	"sync"
	"time"

	"github.com/allergenai/backend/internal/domain"
)

// cacheItem represents a single encoded record in the cache with expiration
type cacheItem struct {
	Value      []byte
	Expiration time.Time // zero means no expiry
}

func (i cacheItem) expired(now time.Time) bool {
	return !i.Expiration.IsZero() && now.After(i.Expiration)
}

// MemoryStore is a thread-safe in-memory ProductStore with TTL support
type MemoryStore struct {
	data  map[string]cacheItem
	ttl   time.Duration
	mutex sync.RWMutex
	stop  chan struct{}
	once  sync.Once
}

// NewMemoryStore creates a new in-memory product store. A zero ttl keeps
// records until the process exits.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	store := &MemoryStore{
		data: make(map[string]cacheItem),
		ttl:  ttl,
		stop: make(chan struct{}),
	}

	// Start cleanup goroutine to remove expired entries every 10 minutes
	go store.cleanupExpired(10 * time.Minute)

	return store
}

// Get retrieves a complete record from the cache
func (c *MemoryStore) Get(ctx context.Context, productCode, language string) (*domain.ResolvedProductRecord, error) {
	c.mutex.RLock()
	item, exists := c.data[Key(productCode, language)]
	c.mutex.RUnlock()

	if !exists || item.expired(time.Now()) {
		return nil, domain.ErrCacheMiss
	}

	return decodeRecord(item.Value)
}

// Put stores the whole record, replacing any previous value for its key.
// Records are serialized to JSON so reads never share memory with callers,
// matching the Redis backend.
func (c *MemoryStore) Put(ctx context.Context, record *domain.ResolvedProductRecord) error {
	data, err := encodeRecord(record)
	if err != nil {
		return err
	}

	item := cacheItem{Value: data}
	if c.ttl > 0 {
		item.Expiration = time.Now().Add(c.ttl)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data[Key(record.ProductCode, record.Language)] = item

	return nil
}

// Delete removes a record from the cache
func (c *MemoryStore) Delete(ctx context.Context, productCode, language string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, Key(productCode, language))
	return nil
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryStore) cleanupExpired(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, item := range c.data {
				if item.expired(now) {
					delete(c.data, key)
				}
			}
			c.mutex.Unlock()
		}
	}
}

// Close stops the cleanup goroutine
func (c *MemoryStore) Close() error {
	c.once.Do(func() { close(c.stop) })
	return nil
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryStore) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryStore) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}
