package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CacheKey derives a stable key for a tenant-scoped query string.
func CacheKey(clientID, query string) string {
	sum := sha256.Sum256([]byte(clientID + "|" + query))
	return hex.EncodeToString(sum[:])
}
