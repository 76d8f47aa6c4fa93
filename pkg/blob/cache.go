package blob

import (
	"context"
	"errors"

	badger "github.com/dgraph-io/badger/v4"
)

// CachedBackend wraps another backend with a badger read cache. Content is
// immutable per key, so cached entries never need invalidation; only reads
// of hashed CIDs benefit, literal CIDs decode without touching storage.
type CachedBackend struct {
	inner Backend
	db    *badger.DB
}

// CacheConfig configures the badger read cache.
type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Path    string `mapstructure:"path" yaml:"path"` // empty = in-memory
}

// NewCachedBackend wraps inner with a badger cache. An empty path keeps the
// cache in memory.
func NewCachedBackend(inner Backend, cfg CacheConfig) (*CachedBackend, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.Path == "" {
		opts = opts.WithInMemory(true)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &CachedBackend{inner: inner, db: db}, nil
}

// Put writes through to the inner backend and primes the cache.
func (c *CachedBackend) Put(ctx context.Context, cid string, content []byte) error {
	if err := c.inner.Put(ctx, cid, content); err != nil {
		return err
	}
	// Cache priming is best-effort; a failed set only costs a later miss.
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cid), content)
	})
	return nil
}

// Get serves from the cache when possible, falling through to the inner
// backend and populating on miss.
func (c *CachedBackend) Get(ctx context.Context, cid string) ([]byte, error) {
	var cached []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(cid))
		if err != nil {
			return err
		}
		cached, err = item.ValueCopy(nil)
		return err
	})
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return nil, err
	}

	content, err := c.inner.Get(ctx, cid)
	if err != nil {
		return nil, err
	}
	_ = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(cid), content)
	})
	return content, nil
}

// Exists consults the cache first, then the inner backend.
func (c *CachedBackend) Exists(ctx context.Context, cid string) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(cid))
		return err
	})
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, badger.ErrKeyNotFound) {
		return false, err
	}
	return c.inner.Exists(ctx, cid)
}

// List always delegates; the cache holds a subset.
func (c *CachedBackend) List(ctx context.Context) ([]string, error) {
	return c.inner.List(ctx)
}

// Close closes the cache database and the inner backend.
func (c *CachedBackend) Close() error {
	cerr := c.db.Close()
	if err := c.inner.Close(); err != nil {
		return err
	}
	return cerr
}
