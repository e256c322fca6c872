// Package providers builds completion provider clients from configuration.
package providers

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"gochat/internal/core"
	"gochat/internal/httpclient"
	"gochat/internal/llmclient"
)

// Options are passed to every Builder.
type Options struct {
	HTTPClient *http.Client
	Hooks      llmclient.Hooks
}

// Builder creates a provider instance from configuration
type Builder func(cfg Config, opts Options) (core.Provider, error)

// Registration couples a provider type with its builder.
type Registration struct {
	Type string
	New  Builder
}

// ProviderFactory holds registered provider builders and the hooks passed to them.
type ProviderFactory struct {
	mu       sync.RWMutex
	builders map[string]Builder
	hooks    llmclient.Hooks
}

// NewProviderFactory creates an empty factory.
func NewProviderFactory() *ProviderFactory {
	return &ProviderFactory{builders: make(map[string]Builder)}
}

// Add registers a provider.
func (f *ProviderFactory) Add(reg Registration) {
	f.Register(reg.Type, reg.New)
}

// Register registers a builder for a provider type
func (f *ProviderFactory) Register(providerType string, builder Builder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.builders[providerType] = builder
}

// SetHooks sets the hooks passed to providers created afterwards.
func (f *ProviderFactory) SetHooks(hooks llmclient.Hooks) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hooks = hooks
}

// Create builds the HTTP client (with the configured proxy) and instantiates the provider.
func (f *ProviderFactory) Create(cfg Config) (core.Provider, error) {
	f.mu.RLock()
	builder, ok := f.builders[cfg.Type]
	hooks := f.hooks
	f.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("provider %s: api key is required", cfg.Type)
	}

	httpCfg := httpclient.DefaultConfig()
	httpCfg.Proxy = cfg.Proxy

	return builder(cfg, Options{
		HTTPClient: httpclient.NewHTTPClient(&httpCfg),
		Hooks:      hooks,
	})
}

// ListRegistered returns the registered provider types, sorted.
func (f *ProviderFactory) ListRegistered() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	types := make([]string, 0, len(f.builders))
	for t := range f.builders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
