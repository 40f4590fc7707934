package ai

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Client is the explicit context object for all AI-backed operations. It
// owns the model pool's ban/cooldown state and the response cache as plain
// fields; nothing here is a package-level singleton, so two Clients (say,
// production and a test) never share penalty state.
type Client struct {
	gauntlet *Gauntlet
	pool     *ModelPool
	cache    *Cache
	logger   *slog.Logger
}

// ClientConfig wires a Client.
type ClientConfig struct {
	Transport Generator
	Models    []string
	Cooldown  time.Duration
	Backoff   time.Duration
	CachePath string
	CacheTTL  time.Duration
}

// NewClient builds the AI client: pool, gauntlet, and cache.
func NewClient(cfg ClientConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Transport == nil {
		return nil, fmt.Errorf("ai: transport is required")
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("ai: at least one model id is required")
	}
	if cfg.CachePath == "" {
		cfg.CachePath = ":memory:"
	}

	cache, err := OpenCache(cfg.CachePath, cfg.CacheTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("ai: open cache: %w", err)
	}

	pool := NewModelPool(cfg.Models, cfg.Cooldown, logger)
	return &Client{
		gauntlet: NewGauntlet(cfg.Transport, pool, cfg.Backoff, logger),
		pool:     pool,
		cache:    cache,
		logger:   logger,
	}, nil
}

// Close releases the cache handle.
func (c *Client) Close() error {
	return c.cache.Close()
}

// PruneCache runs a cache sweep; meant to be scheduled shortly after
// startup rather than on any request path.
func (c *Client) PruneCache(ctx context.Context) {
	c.cache.Prune(ctx, false)
}

// generateValidated runs the shared middle of every operation: gauntlet,
// JSON extraction, schema validation. Returns the validated raw JSON.
func (c *Client) generateValidated(ctx context.Context, req GenerateRequest, schema map[string]any) ([]byte, error) {
	text, err := c.gauntlet.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	raw := []byte(ExtractJSON(text))
	if err := ValidateJSONAgainstSchema(schema, raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return raw, nil
}
