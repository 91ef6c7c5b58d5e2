// Package postgresql implements volley.Cache over a PostgreSQL table using
// pgx, storing each Entry gob-encoded in a single data column.
package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/volley-go/volley"
)

var (
	// ErrNilPool is returned when a nil pool is provided to NewWithPool.
	ErrNilPool = errors.New("postgresql: pool cannot be nil")
	// ErrNilConn is returned when a nil connection is provided to NewWithConn.
	ErrNilConn = errors.New("postgresql: connection cannot be nil")
)

const (
	// DefaultTableName is the default table name for cache storage.
	DefaultTableName = "volleycache"
	// DefaultKeyPrefix is the default prefix for cache keys.
	DefaultKeyPrefix = "cache:"
)

// Config holds the configuration for a PostgreSQL-backed Cache. The
// constructors use DefaultConfig when given a nil Config; the fields of a
// non-nil Config are used as given, zero values included.
type Config struct {
	// TableName names the table to store cache entries in; DefaultConfig
	// sets it to DefaultTableName.
	TableName string
	// KeyPrefix is prepended to every hashed key; DefaultConfig sets it to
	// DefaultKeyPrefix.
	KeyPrefix string
	// Timeout bounds every database operation when the caller's context
	// carries no deadline; DefaultConfig sets it to 5s.
	Timeout time.Duration
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		TableName: DefaultTableName,
		KeyPrefix: DefaultKeyPrefix,
		Timeout:   5 * time.Second,
	}
}

// Cache stores gob-encoded entries in a PostgreSQL table, using either a
// pooled connection (pgxpool.Pool) or a single connection (pgx.Conn).
type Cache struct {
	pool      *pgxpool.Pool
	conn      *pgx.Conn
	tableName string
	keyPrefix string
	timeout   time.Duration
}

func (c *Cache) cacheKey(key string) string {
	return c.keyPrefix + volley.HashKey(key)
}

func (c *Cache) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Cache) exec(ctx context.Context, query string, args ...any) error {
	var err error
	if c.pool != nil {
		_, err = c.pool.Exec(ctx, query, args...)
	} else {
		_, err = c.conn.Exec(ctx, query, args...)
	}
	return err
}

func (c *Cache) queryRow(ctx context.Context, query string, args ...any) pgx.Row {
	if c.pool != nil {
		return c.pool.QueryRow(ctx, query, args...)
	}
	return c.conn.QueryRow(ctx, query, args...)
}

// CreateTable creates the cache table if it doesn't already exist.
func (c *Cache) CreateTable(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS ` + c.tableName + ` (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)
	`
	return c.exec(ctx, query)
}

// Initialize implements volley.Cache by ensuring the backing table exists.
func (c *Cache) Initialize(ctx context.Context) error {
	return c.CreateTable(ctx)
}

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	var data []byte
	query := `SELECT data FROM ` + c.tableName + ` WHERE key = $1`
	if err := c.queryRow(ctx, query, c.cacheKey(key)).Scan(&data); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("postgresql: get %q: %w", key, err)
	}
	entry, err := volley.DecodeEntry(data)
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
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	query := `
		INSERT INTO ` + c.tableName + ` (key, data, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET data = $2, created_at = $3
	`
	if err := c.exec(ctx, query, c.cacheKey(key), raw, time.Now()); err != nil {
		return fmt.Errorf("postgresql: put %q: %w", key, err)
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

// Remove implements volley.Cache.
func (c *Cache) Remove(ctx context.Context, key string) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	query := `DELETE FROM ` + c.tableName + ` WHERE key = $1`
	if err := c.exec(ctx, query, c.cacheKey(key)); err != nil {
		return fmt.Errorf("postgresql: delete %q: %w", key, err)
	}
	return nil
}

// Clear implements volley.Cache.
func (c *Cache) Clear(ctx context.Context) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	if err := c.exec(ctx, `DELETE FROM `+c.tableName); err != nil {
		return fmt.Errorf("postgresql: clear: %w", err)
	}
	return nil
}

// Close closes the connection pool or connection.
func (c *Cache) Close() {
	if c.pool != nil {
		c.pool.Close()
	} else if c.conn != nil {
		_ = c.conn.Close(context.Background())
	}
}

// NewWithPool returns a new Cache using the provided connection pool.
func NewWithPool(pool *pgxpool.Pool, config *Config) (*Cache, error) {
	if pool == nil {
		return nil, ErrNilPool
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Cache{pool: pool, tableName: config.TableName, keyPrefix: config.KeyPrefix, timeout: config.Timeout}, nil
}

// NewWithConn returns a new Cache using the provided connection.
func NewWithConn(conn *pgx.Conn, config *Config) (*Cache, error) {
	if conn == nil {
		return nil, ErrNilConn
	}
	if config == nil {
		config = DefaultConfig()
	}
	return &Cache{conn: conn, tableName: config.TableName, keyPrefix: config.KeyPrefix, timeout: config.Timeout}, nil
}

// New creates a new Cache with a connection pool dialed from connString, and
// ensures the backing table exists.
func New(ctx context.Context, connString string, config *Config) (*Cache, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("postgresql: connect: %w", err)
	}
	if config == nil {
		config = DefaultConfig()
	}
	cache := &Cache{pool: pool, tableName: config.TableName, keyPrefix: config.KeyPrefix, timeout: config.Timeout}
	if err := cache.CreateTable(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgresql: create table: %w", err)
	}
	return cache, nil
}
