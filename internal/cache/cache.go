package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"path"

	"github.com/pkg/errors"
)

// errors
var (
	ErrNotFound = errors.New("cache entry not found")
)

// Storage - blob storage keeping cache entries forever
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte) error
}

// Cache - content-addressed store of raw external responses. Entries are never evicted:
// a resumed run must not spend budget on a call it already paid for.
type Cache struct {
	storage Storage
}

// New -
func New(storage Storage) *Cache {
	return &Cache{storage}
}

// Key - storage key of a request descriptor grouped by its data kind
func Key(namespace, descriptor string) string {
	sum := sha256.Sum256([]byte(descriptor))
	return path.Join(namespace, hex.EncodeToString(sum[:])+".json")
}

// Get - returns payload and true on hit
func (c *Cache) Get(ctx context.Context, namespace, descriptor string) ([]byte, bool, error) {
	if c == nil || c.storage == nil {
		return nil, false, nil
	}
	data, err := c.storage.Get(ctx, Key(namespace, descriptor))
	switch {
	case err == nil:
		return data, true, nil
	case errors.Is(err, ErrNotFound):
		return nil, false, nil
	default:
		return nil, false, err
	}
}

// Put -
func (c *Cache) Put(ctx context.Context, namespace, descriptor string, data []byte) error {
	if c == nil || c.storage == nil {
		return nil
	}
	return c.storage.Put(ctx, Key(namespace, descriptor), data)
}
