package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// LocalCache implements Cache using a JSON file.
type LocalCache struct {
	mu       sync.RWMutex
	filePath string
}

// NewLocalCache creates a file cache at filePath. An empty path disables it.
func NewLocalCache(filePath string) *LocalCache {
	return &LocalCache{filePath: filePath}
}

// NewLocalCacheForEndpoint places the cache file for baseURL inside dir.
func NewLocalCacheForEndpoint(dir, baseURL string) *LocalCache {
	if dir == "" {
		return NewLocalCache("")
	}
	return NewLocalCache(filepath.Join(dir, "models-"+Namespace(baseURL)+".json"))
}

// Path returns the backing file path.
func (c *LocalCache) Path() string {
	return c.filePath
}

// Get reads the cache file.
func (c *LocalCache) Get(_ context.Context) (*ModelCache, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.filePath == "" {
		return nil, nil
	}

	data, err := os.ReadFile(c.filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var cache ModelCache
	if err := json.Unmarshal(data, &cache); err != nil {
		return nil, fmt.Errorf("failed to parse cache file: %w", err)
	}
	return &cache, nil
}

// Set writes the cache file atomically.
func (c *LocalCache) Set(_ context.Context, cache *ModelCache) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.filePath == "" || cache == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.filePath), 0o755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := json.MarshalIndent(cache, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache: %w", err)
	}

	tmpFile := c.filePath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmpFile, c.filePath); err != nil {
		_ = os.Remove(tmpFile)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// Close is a no-op for the file cache.
func (c *LocalCache) Close() error {
	return nil
}
