// Package models lists the models offered by the completion endpoint,
// backed by the model list cache.
package models

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"gochat/internal/cache"
	"gochat/internal/core"
)

// Catalog serves the endpoint's model list, refreshing the cache when it is older than the TTL.
type Catalog struct {
	provider core.Provider
	cache    cache.Cache
	endpoint string
	ttl      time.Duration
	now      func() time.Time

	mu sync.Mutex
}

// NewCatalog creates a catalog. A nil cache disables caching.
func NewCatalog(provider core.Provider, c cache.Cache, endpoint string, ttl time.Duration) *Catalog {
	return &Catalog{
		provider: provider,
		cache:    c,
		endpoint: endpoint,
		ttl:      ttl,
		now:      time.Now,
	}
}

// List returns the available models sorted by ID.
// When the provider fails but a stale cache entry exists, the stale list is returned.
func (c *Catalog) List(ctx context.Context) ([]core.Model, error) {
	return c.list(ctx, false)
}

// Refresh fetches from the provider regardless of cache age.
func (c *Catalog) Refresh(ctx context.Context) ([]core.Model, error) {
	return c.list(ctx, true)
}

func (c *Catalog) list(ctx context.Context, force bool) ([]core.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	cached := c.cached(ctx)
	if !force && cached.Fresh(c.now(), c.ttl) {
		return fromCache(cached), nil
	}

	resp, err := c.provider.ListModels(ctx)
	if err != nil {
		if cached != nil {
			slog.Warn("model list refresh failed, serving stale cache", "error", err, "updated_at", cached.UpdatedAt)
			return fromCache(cached), nil
		}
		return nil, fmt.Errorf("failed to list models: %w", err)
	}

	models := append([]core.Model(nil), resp.Data...)
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })

	if c.cache != nil {
		if err := c.cache.Set(ctx, toCache(c.endpoint, c.now().UTC(), models)); err != nil {
			slog.Warn("failed to store model list", "error", err)
		}
	}
	return models, nil
}

func (c *Catalog) cached(ctx context.Context) *cache.ModelCache {
	if c.cache == nil {
		return nil
	}
	mc, err := c.cache.Get(ctx)
	if err != nil {
		slog.Warn("failed to read model cache", "error", err)
		return nil
	}
	return mc
}

func fromCache(mc *cache.ModelCache) []core.Model {
	models := make([]core.Model, 0, len(mc.Models))
	for _, m := range mc.Models {
		models = append(models, core.Model{ID: m.ID, Object: m.Object, OwnedBy: m.OwnedBy, Created: m.Created})
	}
	return models
}

func toCache(endpoint string, at time.Time, models []core.Model) *cache.ModelCache {
	mc := &cache.ModelCache{Endpoint: endpoint, UpdatedAt: at, Models: make([]cache.CachedModel, 0, len(models))}
	for _, m := range models {
		mc.Models = append(mc.Models, cache.CachedModel{ID: m.ID, Object: m.Object, OwnedBy: m.OwnedBy, Created: m.Created})
	}
	return mc
}
