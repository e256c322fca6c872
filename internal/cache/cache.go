// Package cache stores the provider's model list between runs.
// Supports a local file backend and Redis for shared deployments.
package cache

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ModelCache is the cached model list for one endpoint.
type ModelCache struct {
	Endpoint  string        `json:"endpoint"`
	UpdatedAt time.Time     `json:"updated_at"`
	Models    []CachedModel `json:"models"`
}

// CachedModel is a single cached model entry.
type CachedModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`
	Created int64  `json:"created"`
}

// Fresh reports whether the entry was updated within ttl of now.
// A non-positive ttl never expires.
func (m *ModelCache) Fresh(now time.Time, ttl time.Duration) bool {
	if m == nil || m.UpdatedAt.IsZero() {
		return false
	}
	if ttl <= 0 {
		return true
	}
	return now.Sub(m.UpdatedAt) < ttl
}

// Cache defines the interface for model cache storage.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get retrieves the cached model list.
	// Returns nil, nil if nothing is cached yet.
	Get(ctx context.Context) (*ModelCache, error)

	// Set stores the model list.
	Set(ctx context.Context, cache *ModelCache) error

	// Close releases any resources held by the cache.
	Close() error
}

// Namespace returns a short stable identifier for an endpoint base URL,
// so caches for different endpoints never collide.
func Namespace(baseURL string) string {
	normalized := strings.TrimRight(strings.ToLower(strings.TrimSpace(baseURL)), "/")
	return strconv.FormatUint(xxhash.Sum64String(normalized), 16)
}
