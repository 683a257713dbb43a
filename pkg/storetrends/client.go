// Package storetrends provides a public SDK for embedding storetrends as a library.
//
// Example usage:
//
//	client, err := storetrends.NewClient(
//	    storetrends.WithTimeout(15*time.Second),
//	    storetrends.WithMaxListings(10),
//	)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	top, err := client.Top(ctx, "de")
//	for _, game := range top.Games {
//	    fmt.Println(game.Rank, game.Title, game.Price)
//	}
package storetrends

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/IshaanNene/storetrends/internal/assembler"
	"github.com/IshaanNene/storetrends/internal/config"
	"github.com/IshaanNene/storetrends/internal/engine"
	"github.com/IshaanNene/storetrends/internal/fetcher"
	"github.com/IshaanNene/storetrends/internal/region"
	"github.com/IshaanNene/storetrends/internal/types"
)

// Re-exported result types.
type (
	Listing = types.Listing
	Result  = assembler.Success
	Region  = region.Region

	InvalidRegionError = types.InvalidRegionError
	FetchError         = types.FetchError
)

// Client is the high-level API for using storetrends as a library.
type Client struct {
	cfg    *config.Config
	engine *engine.Engine
	logger *slog.Logger
}

// Option configures a Client.
type Option func(*config.Config)

// WithSearchURL overrides the storefront search endpoint.
func WithSearchURL(u string) Option {
	return func(c *config.Config) { c.Fetcher.SearchURL = u }
}

// WithTimeout sets the fetch timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config.Config) { c.Fetcher.RequestTimeout = d }
}

// WithUserAgent sets a custom User-Agent.
func WithUserAgent(ua string) Option {
	return func(c *config.Config) { c.Fetcher.UserAgent = ua }
}

// WithRateLimit caps outbound fetches per second across the client.
func WithRateLimit(rps float64) Option {
	return func(c *config.Config) { c.Fetcher.RateLimit = rps }
}

// WithBrowser renders pages in a headless browser instead of plain HTTP.
func WithBrowser() Option {
	return func(c *config.Config) { c.Fetcher.Type = "browser" }
}

// WithMaxListings lowers the number of listings returned per region.
func WithMaxListings(n int) Option {
	return func(c *config.Config) { c.Extractor.MaxRecords = n }
}

// WithVerbose enables debug-level logging.
func WithVerbose() Option {
	return func(c *config.Config) { c.Logging.Level = "debug" }
}

// NewClient creates a new Client with the given options.
func NewClient(opts ...Option) (*Client, error) {
	cfg := config.DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	level := slog.LevelWarn
	if cfg.Logging.Level == "debug" {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}

	return &Client{
		cfg:    cfg,
		engine: engine.New(cfg, f, logger),
		logger: logger,
	}, nil
}

// Top returns the ranked new releases for a region code ("" means "us").
func (c *Client) Top(ctx context.Context, code string) (*Result, error) {
	return c.engine.Top(ctx, code)
}

// TopMany queries several regions concurrently, keeping input order.
func (c *Client) TopMany(ctx context.Context, codes ...string) ([]*Result, error) {
	return c.engine.TopMany(ctx, codes)
}

// Regions returns the supported regions in catalog order.
func (c *Client) Regions() []Region {
	return region.All()
}

// Stats returns query counters.
func (c *Client) Stats() map[string]int64 {
	return c.engine.Metrics().Snapshot()
}

// Close releases the client's fetcher.
func (c *Client) Close() error {
	return c.engine.Close()
}
