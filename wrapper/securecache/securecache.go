// Package securecache wraps a volley.Cache to add SHA-256 key hashing
// (always enabled) and optional AES-256-GCM encryption of stored entries.
package securecache

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/volley-go/volley"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN   = 32768
	scryptR   = 8
	scryptP   = 1
	keyLength = 32
	nonceSize = 12
)

// Cache wraps an existing volley.Cache to add security features:
//   - SHA-256 hashing of all cache keys (always enabled)
//   - Optional AES-256-GCM encryption of each Entry's Data (when a
//     passphrase is configured); the other Entry fields are stored as is
type Cache struct {
	inner      volley.Cache
	gcm        cipher.AEAD
	passphrase string
}

// Config holds the configuration for creating a Cache.
type Config struct {
	// Cache is the underlying cache implementation to wrap.
	Cache volley.Cache
	// Passphrase derives the AES-256 key via scrypt. If empty, only key
	// hashing is performed (no encryption). Must be kept secret and
	// consistent across restarts.
	Passphrase string
}

// New creates a Cache wrapping config.Cache. Keys are always hashed with
// SHA-256; if Passphrase is non-empty, entries are also encrypted.
func New(config Config) (*Cache, error) {
	if config.Cache == nil {
		return nil, fmt.Errorf("securecache: cache cannot be nil")
	}
	sc := &Cache{inner: config.Cache, passphrase: config.Passphrase}
	if config.Passphrase != "" {
		gcm, err := initEncryption(config.Passphrase)
		if err != nil {
			return nil, fmt.Errorf("securecache: failed to initialize encryption: %w", err)
		}
		sc.gcm = gcm
	}
	return sc, nil
}

func initEncryption(passphrase string) (cipher.AEAD, error) {
	salt := sha256.Sum256([]byte("volley-securecache-salt-v1"))
	key, err := scrypt.Key([]byte(passphrase), salt[:], scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}

func (sc *Cache) encrypt(data []byte) ([]byte, error) {
	if sc.gcm == nil {
		return data, nil
	}
	nonce := make([]byte, sc.gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	return sc.gcm.Seal(nonce, nonce, data, nil), nil
}

func (sc *Cache) decrypt(data []byte) ([]byte, error) {
	if sc.gcm == nil {
		return data, nil
	}
	if len(data) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	return sc.gcm.Open(nil, nonce, ciphertext, nil)
}

// Initialize implements volley.Cache.
func (sc *Cache) Initialize(ctx context.Context) error { return sc.inner.Initialize(ctx) }

// Get implements volley.Cache: the key is hashed before lookup, and (if
// encryption is enabled) the stored Data is decrypted into a copy of the entry.
func (sc *Cache) Get(ctx context.Context, key string) (*volley.Entry, bool, error) {
	entry, ok, err := sc.inner.Get(ctx, volley.HashKey(key))
	if err != nil || !ok {
		return nil, ok, err
	}
	if sc.gcm == nil {
		return entry, true, nil
	}
	plaintext, err := sc.decrypt(entry.Data)
	if err != nil {
		volley.GetLogger().Warn("failed to decrypt cached entry", "error", err)
		return nil, false, err
	}
	decoded := entry.Clone()
	decoded.Data = plaintext
	return decoded, true, nil
}

// Put implements volley.Cache: the key is hashed, and (if encryption is
// enabled) a copy of the entry with its Data encrypted is stored; entry
// itself is not modified.
func (sc *Cache) Put(ctx context.Context, key string, entry *volley.Entry) error {
	toStore := entry
	if sc.gcm != nil {
		ciphertext, err := sc.encrypt(entry.Data)
		if err != nil {
			return fmt.Errorf("securecache: encrypt: %w", err)
		}
		toStore = entry.Clone()
		toStore.Data = ciphertext
	}
	return sc.inner.Put(ctx, volley.HashKey(key), toStore)
}

// Invalidate implements volley.Cache.
func (sc *Cache) Invalidate(ctx context.Context, key string, fullExpire bool) error {
	return sc.inner.Invalidate(ctx, volley.HashKey(key), fullExpire)
}

// Remove implements volley.Cache.
func (sc *Cache) Remove(ctx context.Context, key string) error {
	return sc.inner.Remove(ctx, volley.HashKey(key))
}

// Clear implements volley.Cache.
func (sc *Cache) Clear(ctx context.Context) error { return sc.inner.Clear(ctx) }

// IsEncrypted reports whether this Cache is configured with encryption.
func (sc *Cache) IsEncrypted() bool { return sc.gcm != nil }
