package volley

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashKey converts a cache key to its SHA-256 hex digest. Cache backends
// whose keyspace is constrained (fixed-length keys, filesystem-safe names)
// commonly apply this before using a key, rather than storing the raw URL.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
