// Package openai provides the OpenAI-compatible chat completion provider,
// including Azure OpenAI deployments.
package openai

import (
	"context"
	"io"
	"net/http"
	"net/url"

	"gochat/internal/core"
	"gochat/internal/llmclient"
	"gochat/internal/providers"
)

// Registration provides factory registration for the OpenAI provider.
var Registration = providers.Registration{
	Type: "openai",
	New:  New,
}

// DefaultBaseURL is used when no base URL is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// Provider implements the core.Provider interface for OpenAI
type Provider struct {
	client   *llmclient.Client
	apiKey   string
	useAzure bool
}

// New creates a new OpenAI provider from resolved configuration.
func New(cfg providers.Config, opts providers.Options) (core.Provider, error) {
	return NewWithHTTPClient(cfg, opts.HTTPClient, opts.Hooks), nil
}

// NewWithHTTPClient creates a new OpenAI provider with a custom HTTP client.
// If httpClient is nil, http.DefaultClient is used.
func NewWithHTTPClient(cfg providers.Config, httpClient *http.Client, hooks llmclient.Hooks) *Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	p := &Provider{apiKey: cfg.APIKey, useAzure: cfg.UseAzure}
	clientCfg := llmclient.DefaultConfig("openai", baseURL)
	clientCfg.Hooks = hooks
	if version := cfg.EffectiveAPIVersion(); version != "" {
		clientCfg.Query = url.Values{"api-version": []string{version}}
	}
	p.client = llmclient.NewWithHTTPClient(httpClient, clientCfg, p.setHeaders)
	return p
}

// setHeaders sets the credential headers. Azure deployments take the key in
// an api-key header rather than as a bearer token.
func (p *Provider) setHeaders(req *http.Request) {
	if p.useAzure {
		req.Header.Set("api-key", p.apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	// OpenAI rejects X-Client-Request-Id values that are not ASCII or exceed 512 bytes.
	if requestID := core.GetRequestID(req.Context()); requestID != "" && isValidClientRequestID(requestID) {
		req.Header.Set("X-Client-Request-Id", requestID)
	}
}

func isValidClientRequestID(id string) bool {
	if len(id) > 512 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] > 127 {
			return false
		}
	}
	return true
}

// ChatCompletion sends a buffered chat completion request
func (p *Provider) ChatCompletion(ctx context.Context, req *core.ChatRequest) (*core.ChatResponse, error) {
	var resp core.ChatResponse
	err := p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     req,
	}, &resp)
	if err != nil {
		return nil, err
	}
	resp.Provider = "openai"
	if resp.Model == "" {
		resp.Model = req.Model
	}
	return &resp, nil
}

// StreamChatCompletion returns a raw SSE body for streaming (caller must close)
func (p *Provider) StreamChatCompletion(ctx context.Context, req *core.ChatRequest) (io.ReadCloser, error) {
	return p.client.DoStream(ctx, llmclient.Request{
		Method:   http.MethodPost,
		Endpoint: "/chat/completions",
		Body:     req.WithStreaming(),
	})
}

// ListModels retrieves the list of available models
func (p *Provider) ListModels(ctx context.Context) (*core.ModelsResponse, error) {
	var resp core.ModelsResponse
	err := p.client.Do(ctx, llmclient.Request{
		Method:   http.MethodGet,
		Endpoint: "/models",
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}
