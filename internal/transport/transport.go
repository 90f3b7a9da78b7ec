// Package transport fetches vendor payloads over HTTP.
//
// Requests to the vendor API host carry the park credentials. Every request names
// its own cache key and time to live, so that the caller decides how fresh each
// payload must be. Failed requests are not retried nor cached.
package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/parkfeeds/parques-reunidos/internal/metrics"
	"github.com/ubuntu/decorate"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

var (
	// ErrUnexpectedStatus is returned when the server answers with a non 2xx status code.
	ErrUnexpectedStatus = errors.New("unexpected status code")
	// ErrMissingCredentials is returned when a client for the API host has no API key or establishment.
	ErrMissingCredentials = errors.New("missing API credentials")
)

// maxBodySize caps the size of a payload read from the network.
const maxBodySize = 32 << 20

// Request describes one payload to fetch.
type Request struct {
	// Endpoint names the payload in logs and metrics.
	Endpoint string
	URL      string
	// CacheKey identifies the payload in the cache. An empty key bypasses the cache.
	CacheKey string
	TTL      time.Duration
}

// Fetcher returns the raw payload for a request.
type Fetcher interface {
	Fetch(ctx context.Context, req Request) ([]byte, error)
}

// ClientConfig configures a Client.
type ClientConfig struct {
	// BaseURL is the vendor API host. Only requests to this host are authenticated.
	BaseURL string
	// APIKey is sent as a bearer token.
	APIKey string
	// Establishment is sent in the Stay-Establishment header.
	Establishment string

	Timeout   time.Duration
	RateLimit rate.Limit
	RateBurst int
	UserAgent string

	// Transport allows injecting a custom HTTP transport.
	Transport http.RoundTripper
}

// DefaultClientConfig returns a client config with the default limits.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		Timeout:   30 * time.Second,
		RateLimit: 5,
		RateBurst: 5,
		UserAgent: "parques-reunidos",
	}
}

// Client is a rate limited and caching HTTP Fetcher.
type Client struct {
	cfg     ClientConfig
	apiHost string

	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *Cache
	group      singleflight.Group

	log     *slog.Logger
	metrics metrics.Park
}

type options struct {
	log     *slog.Logger
	cache   *Cache
	metrics metrics.Park
}

// Options represents an optional function to override Client default values.
type Options func(*options)

// WithLogger sets the logger of the Client.
func WithLogger(l *slog.Logger) Options {
	return func(o *options) {
		o.log = l
	}
}

// WithCache makes the Client use c instead of a cache of its own.
func WithCache(c *Cache) Options {
	return func(o *options) {
		o.cache = c
	}
}

// WithMetrics counts fetches and observes their duration in m.
func WithMetrics(m metrics.Park) Options {
	return func(o *options) {
		o.metrics = m
	}
}

// NewClient returns a Client for cfg. Zero limits in cfg take their default value.
func NewClient(cfg ClientConfig, args ...Options) (c *Client, err error) {
	defer decorate.OnError(&err, "could not create vendor client")

	opts := options{
		log: slog.Default(),
	}
	for _, opt := range args {
		opt(&opts)
	}
	if opts.cache == nil {
		opts.cache = NewCache()
	}

	def := DefaultClientConfig()
	if cfg.Timeout == 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = def.RateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = def.RateBurst
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = def.UserAgent
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %v", cfg.BaseURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base URL %q has no host", cfg.BaseURL)
	}
	if cfg.APIKey == "" || cfg.Establishment == "" {
		return nil, ErrMissingCredentials
	}

	return &Client{
		cfg:     cfg,
		apiHost: strings.ToLower(u.Host),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: cfg.Transport,
		},
		limiter: rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		cache:   opts.cache,
		log:     opts.log,
		metrics: opts.metrics,
	}, nil
}

// Fetch returns the payload of req, from the cache when it holds a fresh copy.
// Concurrent fetches of the same cache key share a single request.
func (c *Client) Fetch(ctx context.Context, req Request) ([]byte, error) {
	if req.CacheKey == "" {
		return c.fetch(ctx, req)
	}

	if data, ok := c.cache.Get(req.CacheKey); ok {
		c.log.Debug("Serving cached payload", "endpoint", req.Endpoint, "key", req.CacheKey)
		c.count(req.Endpoint, metrics.ResultCached)
		return data, nil
	}

	v, err, _ := c.group.Do(req.CacheKey, func() (any, error) {
		if data, ok := c.cache.Get(req.CacheKey); ok {
			return data, nil
		}
		data, err := c.fetch(ctx, req)
		if err != nil {
			return nil, err
		}
		c.cache.Set(req.CacheKey, data, req.TTL)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (c *Client) fetch(ctx context.Context, req Request) (data []byte, err error) {
	defer decorate.OnError(&err, "could not fetch %s", req.Endpoint)
	defer func() {
		if err != nil {
			c.count(req.Endpoint, metrics.ResultError)
		}
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %v", err)
	}
	httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	c.authenticate(httpReq)

	c.log.Debug("Fetching payload", "endpoint", req.Endpoint, "url", req.URL)
	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()
	if c.metrics.FetchDuration != nil {
		c.metrics.FetchDuration.WithLabelValues(req.Endpoint).Observe(time.Since(start).Seconds())
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	data, err = io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %v", err)
	}

	c.count(req.Endpoint, metrics.ResultOK)
	return data, nil
}

// authenticate adds the park credentials to requests for the API host.
func (c *Client) authenticate(req *http.Request) {
	if !strings.EqualFold(req.URL.Host, c.apiHost) {
		return
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Stay-Establishment", c.cfg.Establishment)
}

func (c *Client) count(endpoint, result string) {
	if c.metrics.Fetches == nil {
		return
	}
	c.metrics.Fetches.WithLabelValues(endpoint, result).Inc()
}
