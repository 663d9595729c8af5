package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache stores raw fetched bodies (HTML pages, feed XML, API JSON) so
// that analyze-then-collect flows do not refetch the same probe pages.
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a URL.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return "hindsite:v1:" + hex.EncodeToString(sum[:])
}
