// Package httputil provides the named, pooled HTTP clients used by every
// outbound adapter: one per collector source plus the LLM, spreadsheet, and
// webhook backends.
package httputil

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

// ClientConfig holds HTTP client configuration.
type ClientConfig struct {
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	MaxConnsPerHost     int
	IdleConnTimeout     time.Duration
	DialTimeout         time.Duration
	TLSHandshakeTimeout time.Duration
	ResponseTimeout     time.Duration
	KeepAliveInterval   time.Duration
}

// DefaultClientConfig returns sane pooling defaults; callers override ResponseTimeout per source.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		MaxIdleConns:        50,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
		DialTimeout:         10 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		ResponseTimeout:     20 * time.Second,
		KeepAliveInterval:   30 * time.Second,
	}
}

// NewOptimizedClient creates an HTTP client with connection pooling.
func NewOptimizedClient(cfg *ClientConfig) *http.Client {
	if cfg == nil {
		cfg = DefaultClientConfig()
	}
	dialer := &net.Dialer{Timeout: cfg.DialTimeout, KeepAlive: cfg.KeepAliveInterval}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       cfg.IdleConnTimeout,
		TLSHandshakeTimeout:   cfg.TLSHandshakeTimeout,
		ForceAttemptHTTP2:     true,
		ResponseHeaderTimeout: cfg.ResponseTimeout,
	}
	return &http.Client{Transport: transport, Timeout: cfg.ResponseTimeout}
}

// Per-source configs; typical timeouts: arxiv 20s, github 5s, helm 20s, LLM 30s, spreadsheet 15s.
func ArxivClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 20 * time.Second
	return cfg
}

func GitHubClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 5 * time.Second
	cfg.MaxIdleConnsPerHost = 20
	return cfg
}

func HuggingFaceClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 15 * time.Second
	return cfg
}

func HELMClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 20 * time.Second
	return cfg
}

func TechEmpowerClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 15 * time.Second
	return cfg
}

func DBEnginesClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 15 * time.Second
	return cfg
}

func SemanticScholarClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 15 * time.Second
	return cfg
}

func OpenAIClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 30 * time.Second
	cfg.MaxIdleConnsPerHost = 30
	return cfg
}

func SpreadsheetClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 15 * time.Second
	return cfg
}

func WebhookClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 10 * time.Second
	return cfg
}

func PDFFetchClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 30 * time.Second
	return cfg
}

func PDFParserClientConfig() *ClientConfig {
	cfg := DefaultClientConfig()
	cfg.ResponseTimeout = 45 * time.Second
	return cfg
}

// Pool is a named registry of singleton HTTP clients, one per external collaborator.
type Pool struct {
	mu      sync.Mutex
	clients map[string]*http.Client
}

func NewPool() *Pool {
	p := &Pool{clients: make(map[string]*http.Client)}
	p.clients["arxiv"] = NewOptimizedClient(ArxivClientConfig())
	p.clients["github"] = NewOptimizedClient(GitHubClientConfig())
	p.clients["huggingface"] = NewOptimizedClient(HuggingFaceClientConfig())
	p.clients["helm"] = NewOptimizedClient(HELMClientConfig())
	p.clients["techempower"] = NewOptimizedClient(TechEmpowerClientConfig())
	p.clients["dbengines"] = NewOptimizedClient(DBEnginesClientConfig())
	p.clients["semantic_scholar"] = NewOptimizedClient(SemanticScholarClientConfig())
	p.clients["openai"] = NewOptimizedClient(OpenAIClientConfig())
	p.clients["spreadsheet"] = NewOptimizedClient(SpreadsheetClientConfig())
	p.clients["webhook"] = NewOptimizedClient(WebhookClientConfig())
	p.clients["pdf_fetch"] = NewOptimizedClient(PDFFetchClientConfig())
	p.clients["pdf_parser"] = NewOptimizedClient(PDFParserClientConfig())
	return p
}

// Client returns the named client, or a default-config client if name is unknown.
func (p *Pool) Client(name string) *http.Client {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.clients[name]; ok {
		return c
	}
	c := NewOptimizedClient(DefaultClientConfig())
	p.clients[name] = c
	return c
}

// DoWithContext executes an HTTP request bound to ctx.
func DoWithContext(ctx context.Context, client *http.Client, req *http.Request) (*http.Response, error) {
	if client == nil {
		client = http.DefaultClient
	}
	return client.Do(req.WithContext(ctx))
}
