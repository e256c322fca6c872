// Package llmclient provides the base HTTP client used by completion providers:
//   - request marshaling/unmarshaling
//   - standardized error parsing of provider responses into core.GatewayError
//   - raw SSE streams and their decoding into content fragments
//   - request hooks for metrics
//
// Requests are sent exactly once. Retrying is left to the caller.
//
// Only answers from the provider become *core.GatewayError: non-200 responses
// and in-band error events. Transport failures and bodies that cannot be
// decoded are returned as plain wrapped errors.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"gochat/internal/core"
	"gochat/internal/httpclient"
)

// Config holds configuration for the LLM client
type Config struct {
	// ProviderName identifies the provider for error messages
	ProviderName string

	// BaseURL is the API base URL
	BaseURL string

	// Query parameters added to every request (e.g. api-version for Azure)
	Query url.Values

	// Hooks observe every request
	Hooks Hooks
}

// DefaultConfig returns default client configuration
func DefaultConfig(providerName, baseURL string) Config {
	return Config{
		ProviderName: providerName,
		BaseURL:      baseURL,
	}
}

// RequestInfo describes a request for hooks.
type RequestInfo struct {
	Provider string
	Method   string
	Endpoint string
	Stream   bool
}

// Hooks are optional callbacks around each request. For streams, OnRequestEnd
// fires once the response headers have been received.
type Hooks struct {
	OnRequestStart func(ctx context.Context, info RequestInfo) context.Context
	OnRequestEnd   func(ctx context.Context, info RequestInfo, statusCode int, err error, duration time.Duration)
}

// HeaderSetter is a function that sets headers on an HTTP request
type HeaderSetter func(req *http.Request)

// Client is a base HTTP client for LLM providers
type Client struct {
	httpClient   *http.Client
	config       Config
	headerSetter HeaderSetter
}

// New creates a new LLM client with the given configuration
func New(config Config, headerSetter HeaderSetter) *Client {
	return NewWithHTTPClient(httpclient.NewDefaultHTTPClient(), config, headerSetter)
}

// NewWithHTTPClient creates a new LLM client with a custom HTTP client
func NewWithHTTPClient(httpClient *http.Client, config Config, headerSetter HeaderSetter) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		httpClient:   httpClient,
		config:       config,
		headerSetter: headerSetter,
	}
}

// BaseURL returns the current base URL
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// Request represents an HTTP request to be made
type Request struct {
	Method   string
	Endpoint string
	Body     interface{} // Will be JSON marshaled if not nil
	Headers  map[string]string
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
}

// Do executes a request, then unmarshals the response
func (c *Client) Do(ctx context.Context, req Request, result interface{}) error {
	resp, err := c.DoRaw(ctx, req)
	if err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(resp.Body, result); err != nil {
			return fmt.Errorf("%s: decode response: %w", c.config.ProviderName, err)
		}
	}

	return nil
}

// DoRaw executes a request and returns the raw response body.
// Non-200 responses are returned as *core.GatewayError.
func (c *Client) DoRaw(ctx context.Context, req Request) (*Response, error) {
	info := c.requestInfo(req, false)
	ctx, finish := c.startHooks(ctx, info)

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		finish(0, err)
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("%s: send request: %w", c.config.ProviderName, err)
		finish(0, err)
		return nil, err
	}
	defer func() {
		_ = httpResp.Body.Close()
	}()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		err = fmt.Errorf("%s: read response: %w", c.config.ProviderName, err)
		finish(httpResp.StatusCode, err)
		return nil, err
	}

	if httpResp.StatusCode != http.StatusOK {
		gwErr := core.ParseProviderError(c.config.ProviderName, httpResp.StatusCode, body, nil)
		finish(httpResp.StatusCode, gwErr)
		return nil, gwErr
	}

	finish(httpResp.StatusCode, nil)
	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
	}, nil
}

// DoStream executes a streaming request, returning the raw SSE body (caller must close)
func (c *Client) DoStream(ctx context.Context, req Request) (io.ReadCloser, error) {
	info := c.requestInfo(req, true)
	ctx, finish := c.startHooks(ctx, info)

	httpReq, err := c.buildRequest(ctx, req)
	if err != nil {
		finish(0, err)
		return nil, err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		err = fmt.Errorf("%s: send request: %w", c.config.ProviderName, err)
		finish(0, err)
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		respBody, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			respBody = []byte("failed to read error response")
		}
		_ = resp.Body.Close()

		gwErr := core.ParseProviderError(c.config.ProviderName, resp.StatusCode, respBody, nil)
		finish(resp.StatusCode, gwErr)
		return nil, gwErr
	}

	finish(resp.StatusCode, nil)
	return resp.Body, nil
}

// buildRequest creates an HTTP request from a Request
func (c *Client) buildRequest(ctx context.Context, req Request) (*http.Request, error) {
	target := c.config.BaseURL + req.Endpoint
	if len(c.config.Query) > 0 {
		u, err := url.Parse(target)
		if err != nil {
			return nil, fmt.Errorf("invalid request URL: %w", err)
		}
		q := u.Query()
		for key, values := range c.config.Query {
			for _, v := range values {
				q.Add(key, v)
			}
		}
		u.RawQuery = q.Encode()
		target = u.String()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyBytes, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	// Apply provider-specific headers
	if c.headerSetter != nil {
		c.headerSetter(httpReq)
	}

	// Apply request-specific headers
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	return httpReq, nil
}

func (c *Client) requestInfo(req Request, stream bool) RequestInfo {
	return RequestInfo{
		Provider: c.config.ProviderName,
		Method:   req.Method,
		Endpoint: req.Endpoint,
		Stream:   stream,
	}
}

// startHooks runs OnRequestStart and returns a closure that runs OnRequestEnd.
func (c *Client) startHooks(ctx context.Context, info RequestInfo) (context.Context, func(int, error)) {
	if c.config.Hooks.OnRequestStart != nil {
		if hookCtx := c.config.Hooks.OnRequestStart(ctx, info); hookCtx != nil {
			ctx = hookCtx
		}
	}
	start := time.Now()
	return ctx, func(statusCode int, err error) {
		if c.config.Hooks.OnRequestEnd != nil {
			c.config.Hooks.OnRequestEnd(ctx, info, statusCode, err, time.Since(start))
		}
	}
}
