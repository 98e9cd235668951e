// Package cache provides the cache handle the planning engine is
// wrapped with. Keys are deterministic hashes of a category plus its
// ordered arguments, so identical requests against the same schema
// version hit the same entry.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// Cache is a read-through handle consulted before planning. Both
// operations must be safe for concurrent use.
type Cache interface {
	Get(key string) (string, bool)
	Set(key, value string)
}

// Key derives a deterministic cache key from a category and its ordered
// arguments. Argument order matters; a zero byte separates arguments so
// adjacent values cannot collide.
func Key(category string, args ...string) string {
	h := sha256.New()
	h.Write([]byte(category))
	for _, a := range args {
		h.Write([]byte{0})
		h.Write([]byte(a))
	}
	return hex.EncodeToString(h.Sum(nil))
}
