package providers

import (
	"context"
	"io"
	"sync"

	"gochat/internal/core"
)

// Lazy is a session-scoped provider that is constructed on first use and
// reused afterwards. A construction error is sticky.
type Lazy struct {
	factory *ProviderFactory
	cfg     Config

	once     sync.Once
	provider core.Provider
	err      error
}

// NewLazy returns a provider that defers construction until the first request.
func NewLazy(factory *ProviderFactory, cfg Config) *Lazy {
	return &Lazy{factory: factory, cfg: cfg}
}

// Get returns the provider, constructing it on the first call.
func (l *Lazy) Get() (core.Provider, error) {
	l.once.Do(func() {
		l.provider, l.err = l.factory.Create(l.cfg)
	})
	return l.provider, l.err
}

// ChatCompletion implements core.Provider
func (l *Lazy) ChatCompletion(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	p, err := l.Get()
	if err != nil {
		return nil, err
	}
	return p.ChatCompletion(ctx, req)
}

// StreamChatCompletion implements core.Provider
func (l *Lazy) StreamChatCompletion(ctx context.Context, req *core.ChatRequest) (io.ReadCloser, error) {
	p, err := l.Get()
	if err != nil {
		return nil, err
	}
	return p.StreamChatCompletion(ctx, req)
}

// ListModels implements core.Provider
func (l *Lazy) ListModels(ctx context.Context) (*core.ModelsResponse, error) {
	p, err := l.Get()
	if err != nil {
		return nil, err
	}
	return p.ListModels(ctx)
}
