// Package cache provides byte caches shared by the embedder and the online
// expansion connector.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key builds a namespaced cache key from the given parts.
// Parts are joined with a separator that cannot appear in the hash input
// ambiguously, so ("a","bc") and ("ab","c") hash differently.
func Key(namespace string, parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		_, _ = h.Write([]byte(p))
		_, _ = h.Write([]byte{0})
	}
	return "claimcheck:v1:" + namespace + ":" + hex.EncodeToString(h.Sum(nil))
}

// safeFileName maps a cache key onto a file name
func safeFileName(key string) string {
	return strings.NewReplacer(":", "_", "/", "_").Replace(key)
}
