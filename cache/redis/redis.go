// Package redis implements volley.Cache over Redis using go-redis, storing
// each Entry gob-encoded under a "rediscache:"-prefixed, SHA-256-hashed key
// and letting Redis expire entries natively via SET with an expiration.
package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/volley-go/volley"
)

const keyPrefix = "rediscache:"

// Config configures the underlying go-redis client.
type Config struct {
	Address        string
	Password       string
	DB             int
	PoolSize       int
	MinIdleConns   int
	DialTimeout    time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	ConnectTimeout time.Duration
}

// DefaultConfig returns sane pool and timeout defaults, leaving Address and
// Password for the caller to fill in.
func DefaultConfig() Config {
	return Config{
		DB:             0,
		PoolSize:       10,
		MinIdleConns:   2,
		DialTimeout:    5 * time.Second,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		ConnectTimeout: 5 * time.Second,
	}
}

// Cache stores gob-encoded entries in Redis.
type Cache struct {
	client *goredis.Client
}

// New builds a go-redis client per config, applying DefaultConfig for any
// zero-valued duration/pool fields. It does not contact the server;
// Initialize verifies connectivity with a PING.
func New(config Config) (*Cache, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("redis: Address is required")
	}
	def := DefaultConfig()
	if config.PoolSize == 0 {
		config.PoolSize = def.PoolSize
	}
	if config.MinIdleConns == 0 {
		config.MinIdleConns = def.MinIdleConns
	}
	if config.DialTimeout == 0 {
		config.DialTimeout = def.DialTimeout
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = def.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = def.WriteTimeout
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:         config.Address,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
		DialTimeout:  config.DialTimeout,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	})

	return NewWithClient(client), nil
}

// NewWithClient wraps an already-configured go-redis client.
func NewWithClient(client *goredis.Client) *Cache {
	return &Cache{client: client}
}

func cacheKey(key string) string {
	return keyPrefix + volley.HashKey(key)
}

// Initialize implements volley.Cache by verifying the connection is alive.
func (c *Cache) Initialize(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: ping: %w", err)
	}
	return nil
}

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if err == goredis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis: get %q: %w", key, err)
	}
	entry, err := volley.DecodeEntry(raw)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Put implements volley.Cache. When entry.TTL is in the future, the key is
// given a matching Redis expiration so stale data is reclaimed automatically;
// otherwise it is stored with no expiration and relies on Entry.IsExpired at
// read time.
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	raw, err := volley.EncodeEntry(entry)
	if err != nil {
		return err
	}
	ttl := time.Duration(0)
	if !entry.TTL.IsZero() {
		if d := time.Until(entry.TTL); d > 0 {
			ttl = d
		}
	}
	if err := c.client.Set(ctx, cacheKey(key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis: set %q: %w", key, err)
	}
	return nil
}

// Invalidate implements volley.Cache by rewriting the stored entry with its
// TTL/SoftTTL cleared; clearing TTL also drops the key's Redis expiration.
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

// Remove implements volley.Cache.
func (c *Cache) Remove(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, cacheKey(key)).Err(); err != nil {
		return fmt.Errorf("redis: del %q: %w", key, err)
	}
	return nil
}

// Clear implements volley.Cache by scanning and deleting every key under the
// rediscache: prefix, rather than FLUSHDB which would affect unrelated keys
// sharing the database.
func (c *Cache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("redis: scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("redis: del: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Cache) Close() error {
	return c.client.Close()
}
