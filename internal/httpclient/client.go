// Package httpclient provides the HTTP client factory used to reach the completion provider.
package httpclient

import (
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// ProxyConfig describes an outbound proxy. It is only applied when all three
// fields are set.
type ProxyConfig struct {
	Protocol string
	Host     string
	Port     string
}

// Enabled reports whether the descriptor is complete.
func (p ProxyConfig) Enabled() bool {
	return strings.TrimSpace(p.Protocol) != "" &&
		strings.TrimSpace(p.Host) != "" &&
		strings.TrimSpace(p.Port) != ""
}

// URL returns the proxy URL, or nil when the descriptor is incomplete.
func (p ProxyConfig) URL() *url.URL {
	if !p.Enabled() {
		return nil
	}
	return &url.URL{
		Scheme: strings.TrimSuffix(strings.TrimSpace(p.Protocol), "://"),
		Host:   net.JoinHostPort(strings.TrimSpace(p.Host), strings.TrimSpace(p.Port)),
	}
}

// ClientConfig holds configuration options for creating HTTP clients
type ClientConfig struct {
	// Proxy routes all traffic through the given proxy when complete
	Proxy ProxyConfig

	// MaxIdleConns controls the maximum number of idle (keep-alive) connections across all hosts
	MaxIdleConns int

	// MaxIdleConnsPerHost controls the maximum idle (keep-alive) connections to keep per-host
	MaxIdleConnsPerHost int

	// IdleConnTimeout is the maximum amount of time an idle (keep-alive) connection will remain idle before closing itself
	IdleConnTimeout time.Duration

	// Timeout specifies a time limit for requests made by the client
	Timeout time.Duration

	// DialTimeout is the maximum amount of time a dial will wait for a connect to complete
	DialTimeout time.Duration

	// KeepAlive specifies the interval between keep-alive probes for an active network connection
	KeepAlive time.Duration

	// TLSHandshakeTimeout specifies the maximum amount of time to wait for a TLS handshake
	TLSHandshakeTimeout time.Duration

	// ResponseHeaderTimeout specifies the amount of time to wait for a server's response headers
	ResponseHeaderTimeout time.Duration
}

// getEnvDuration reads a duration from an environment variable, returning the default if not set or invalid.
// Accepts either plain integers (interpreted as seconds) or Go duration strings (e.g., "10m", "1h30m").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	return defaultVal
}

// DefaultConfig returns a ClientConfig with sensible defaults for API clients.
// Timeout values match the OpenAI SDK default (10 minutes) and can be overridden via
// HTTP_TIMEOUT and HTTP_RESPONSE_HEADER_TIMEOUT (seconds or Go duration format).
func DefaultConfig() ClientConfig {
	return ClientConfig{
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   100,
		IdleConnTimeout:       90 * time.Second,
		Timeout:               getEnvDuration("HTTP_TIMEOUT", 600*time.Second),
		DialTimeout:           30 * time.Second,
		KeepAlive:             30 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: getEnvDuration("HTTP_RESPONSE_HEADER_TIMEOUT", 600*time.Second),
	}
}

// NewHTTPClient creates a new HTTP client with the provided configuration.
// If config is nil, DefaultConfig() is used. Without a complete proxy descriptor
// the client connects directly; environment proxy variables are ignored.
func NewHTTPClient(config *ClientConfig) *http.Client {
	if config == nil {
		cfg := DefaultConfig()
		config = &cfg
	}

	transport := &http.Transport{
		Proxy: proxyFunc(config.Proxy),
		DialContext: (&net.Dialer{
			Timeout:   config.DialTimeout,
			KeepAlive: config.KeepAlive,
		}).DialContext,
		MaxIdleConns:          config.MaxIdleConns,
		MaxIdleConnsPerHost:   config.MaxIdleConnsPerHost,
		IdleConnTimeout:       config.IdleConnTimeout,
		TLSHandshakeTimeout:   config.TLSHandshakeTimeout,
		ResponseHeaderTimeout: config.ResponseHeaderTimeout,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   config.Timeout,
	}
}

// NewDefaultHTTPClient creates a new HTTP client with default configuration.
func NewDefaultHTTPClient() *http.Client {
	return NewHTTPClient(nil)
}

func proxyFunc(p ProxyConfig) func(*http.Request) (*url.URL, error) {
	u := p.URL()
	if u == nil {
		return nil
	}
	return http.ProxyURL(u)
}
