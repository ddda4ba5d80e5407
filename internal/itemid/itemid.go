// Package itemid provides deterministic item IDs so usage weights survive index rebuilds.
package itemid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

// ForPath returns a stable ID for an item backed by a file (e.g. a desktop entry).
// The same provider and cleaned path always yield the same ID.
func ForPath(provider, absolutePath string) string {
	return provider + ":" + digest(filepath.Clean(absolutePath))
}

// ForKey returns a stable ID for an item identified by an arbitrary key such as a URL.
func ForKey(provider, key string) string {
	return provider + ":" + digest(key)
}

func digest(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:16])
}
