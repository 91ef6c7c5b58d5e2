// Package leveldbcache implements volley.Cache over syndtr/goleveldb, an
// embedded key-value store suited to a single-process disk-backed cache.
package leveldbcache

import (
	"context"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/volley-go/volley"
)

// Cache stores gob-encoded entries in a leveldb database.
type Cache struct {
	db *leveldb.DB
}

// New opens (creating if absent) a leveldb database at path.
func New(path string) (*Cache, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("leveldbcache: open %q: %w", path, err)
	}
	return &Cache{db: db}, nil
}

// NewWithDB wraps an already-open leveldb database.
func NewWithDB(db *leveldb.DB) *Cache {
	return &Cache{db: db}
}

func dbKey(key string) []byte {
	return []byte(volley.HashKey(key))
}

// Initialize implements volley.Cache; the database is already open by New.
func (c *Cache) Initialize(ctx context.Context) error { return nil }

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	raw, err := c.db.Get(dbKey(key), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("leveldbcache: get %q: %w", key, err)
	}
	entry, err := volley.DecodeEntry(raw)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Put implements volley.Cache.
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	raw, err := volley.EncodeEntry(entry)
	if err != nil {
		return err
	}
	if err := c.db.Put(dbKey(key), raw, nil); err != nil {
		return fmt.Errorf("leveldbcache: put %q: %w", key, err)
	}
	return nil
}

// Invalidate implements volley.Cache by rewriting the stored entry with its
// TTL/SoftTTL cleared.
func (c *Cache) Invalidate(ctx context.Context, key string, fullExpire bool) error {
	entry, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return err
	}
	entry.SoftTTL = time.Time{}
	if fullExpire {
		entry.TTL = time.Time{}
	}
	return c.Put(ctx, key, entry)
}

// Remove implements volley.Cache. Deleting an absent key is not an error.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if err := c.db.Delete(dbKey(key), nil); err != nil {
		return fmt.Errorf("leveldbcache: delete %q: %w", key, err)
	}
	return nil
}

// Clear implements volley.Cache by iterating and deleting every key.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.db.NewIterator(nil, nil)
	defer iter.Release()

	batch := new(leveldb.Batch)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	if err := iter.Error(); err != nil {
		return fmt.Errorf("leveldbcache: iterate: %w", err)
	}
	if err := c.db.Write(batch, nil); err != nil {
		return fmt.Errorf("leveldbcache: clear: %w", err)
	}
	return nil
}

// Close releases the underlying leveldb database.
func (c *Cache) Close() error {
	return c.db.Close()
}
