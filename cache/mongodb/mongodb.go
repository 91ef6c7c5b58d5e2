// Package mongodb implements volley.Cache over a MongoDB collection, storing
// each Entry gob-encoded alongside its expiry so a TTL index can reap stale
// documents without any help from the cache dispatcher.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/volley-go/volley"
)

const ttlIndexName = "volley_ttl"

// Config configures a MongoDB-backed Cache.
type Config struct {
	// URI is the MongoDB connection string. Required.
	URI string
	// Database names the database to use. Required.
	Database string
	// Collection names the collection to use; defaults to "volleycache".
	Collection string
	// KeyPrefix is prepended to every stored document's hashed key;
	// defaults to "cache:".
	KeyPrefix string
	// Timeout bounds every database operation; defaults to 5s.
	Timeout time.Duration
	// ClientOptions are merged with URI when dialing.
	ClientOptions *options.ClientOptions
}

// DefaultConfig returns sane defaults, leaving URI and Database for the
// caller to fill in.
func DefaultConfig() Config {
	return Config{
		Collection: "volleycache",
		KeyPrefix:  "cache:",
		Timeout:    5 * time.Second,
	}
}

type document struct {
	Key      string    `bson:"_id"`
	Data     []byte    `bson:"data"`
	ExpireAt time.Time `bson:"expireAt,omitempty"`
}

// Cache stores gob-encoded entries as MongoDB documents.
type Cache struct {
	client     *mongo.Client
	collection *mongo.Collection
	keyPrefix  string
	timeout    time.Duration
	ownsClient bool
}

func (c *Cache) docKey(key string) string {
	return c.keyPrefix + volley.HashKey(key)
}

// New connects to MongoDB, verifies the connection, and creates a TTL index
// keyed on the document's absolute expiry timestamp. The caller should call
// Close when done.
func New(ctx context.Context, config Config) (*Cache, error) {
	if config.URI == "" {
		return nil, fmt.Errorf("mongodb: URI is required")
	}
	if config.Database == "" {
		return nil, fmt.Errorf("mongodb: Database is required")
	}
	def := DefaultConfig()
	if config.Collection == "" {
		config.Collection = def.Collection
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = def.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}

	clientOpts := options.Client().ApplyURI(config.URI)
	if config.ClientOptions != nil {
		clientOpts = config.ClientOptions.ApplyURI(config.URI)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongodb: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, config.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongodb: ping: %w", err)
	}

	collection := client.Database(config.Database).Collection(config.Collection)
	c := &Cache{client: client, collection: collection, keyPrefix: config.KeyPrefix, timeout: config.Timeout, ownsClient: true}

	if err := c.ensureTTLIndex(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return c, nil
}

// NewWithClient wraps an already-connected client; Close becomes a no-op.
func NewWithClient(client *mongo.Client, database, collection string, config Config) (*Cache, error) {
	if client == nil {
		return nil, fmt.Errorf("mongodb: client is required")
	}
	if database == "" {
		return nil, fmt.Errorf("mongodb: database is required")
	}
	def := DefaultConfig()
	if collection == "" {
		collection = def.Collection
	}
	if config.KeyPrefix == "" {
		config.KeyPrefix = def.KeyPrefix
	}
	if config.Timeout == 0 {
		config.Timeout = def.Timeout
	}
	return &Cache{
		collection: client.Database(database).Collection(collection),
		keyPrefix:  config.KeyPrefix,
		timeout:    config.Timeout,
	}, nil
}

func (c *Cache) ensureTTLIndex(ctx context.Context) error {
	idxCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	_, err := c.collection.Indexes().CreateOne(idxCtx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expireAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName(ttlIndexName),
	})
	if err != nil {
		return fmt.Errorf("mongodb: create TTL index: %w", err)
	}
	return nil
}

// Initialize implements volley.Cache; connection and index setup already
// happened in New.
func (c *Cache) Initialize(ctx context.Context) error { return nil }

// Get implements volley.Cache.
func (c *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var doc document
	err := c.collection.FindOne(opCtx, bson.M{"_id": c.docKey(key)}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("mongodb: get %q: %w", key, err)
	}
	entry, err := volley.DecodeEntry(doc.Data)
	if err != nil {
		return nil, false, err
	}
	return entry, true, nil
}

// Put implements volley.Cache. A non-zero entry.TTL doubles as the
// document's expireAt, so MongoDB's TTL monitor reaps it automatically.
func (c *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	raw, err := volley.EncodeEntry(entry)
	if err != nil {
		return err
	}
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	doc := document{Key: c.docKey(key), Data: raw, ExpireAt: entry.TTL}
	opts := options.Replace().SetUpsert(true)
	if _, err := c.collection.ReplaceOne(opCtx, bson.M{"_id": doc.Key}, doc, opts); err != nil {
		return fmt.Errorf("mongodb: put %q: %w", key, err)
	}
	return nil
}

// Invalidate implements volley.Cache by rewriting the stored entry with its
// TTL/SoftTTL cleared; clearing TTL also removes the document's expiration.
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
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.collection.DeleteOne(opCtx, bson.M{"_id": c.docKey(key)}); err != nil {
		return fmt.Errorf("mongodb: delete %q: %w", key, err)
	}
	return nil
}

// Clear implements volley.Cache by deleting every document in the
// collection.
func (c *Cache) Clear(ctx context.Context) error {
	opCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.collection.DeleteMany(opCtx, bson.M{}); err != nil {
		return fmt.Errorf("mongodb: clear: %w", err)
	}
	return nil
}

// Close disconnects the client, if this Cache owns it.
func (c *Cache) Close() error {
	if !c.ownsClient || c.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return c.client.Disconnect(ctx)
}
