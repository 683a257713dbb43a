package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/storetrends/internal/assembler"
	"github.com/IshaanNene/storetrends/internal/config"
	"github.com/IshaanNene/storetrends/internal/fetcher"
	"github.com/IshaanNene/storetrends/internal/observability"
	"github.com/IshaanNene/storetrends/internal/parser"
	"github.com/IshaanNene/storetrends/internal/region"
	"github.com/IshaanNene/storetrends/internal/types"
)

// maxParallelRegions bounds concurrent fetches in TopMany.
const maxParallelRegions = 4

// Fetcher retrieves one document.
type Fetcher interface {
	Fetch(ctx context.Context, req *types.Request) (*types.Response, error)
	Close() error
}

// Extractor turns a fetched document into ranked listings.
type Extractor interface {
	Extract(resp *types.Response) (*parser.Result, error)
}

// Engine runs a top-listing query end to end: resolve the region, fetch
// its search page, extract listings and assemble the payload.
// Queries share no mutable state besides the metrics counters.
type Engine struct {
	cfg       *config.Config
	logger    *slog.Logger
	fetcher   Fetcher
	extractor Extractor
	assembler *assembler.Assembler
	metrics   *observability.Metrics
}

// New creates an Engine around f.
func New(cfg *config.Config, f Fetcher, logger *slog.Logger) *Engine {
	return &Engine{
		cfg:     cfg,
		logger:  logger.With("component", "engine"),
		fetcher: f,
		extractor: parser.New(logger,
			parser.WithMaxListings(cfg.Extractor.MaxRecords),
			parser.WithBaseURL(cfg.Fetcher.SearchURL),
		),
		assembler: assembler.New(nil),
		metrics:   observability.NewMetrics(logger),
	}
}

// SetExtractor replaces the default extractor.
func (e *Engine) SetExtractor(x Extractor) {
	e.extractor = x
}

// SetAssembler replaces the default assembler.
func (e *Engine) SetAssembler(a *assembler.Assembler) {
	e.assembler = a
}

// SetMetrics replaces the engine's metrics sink.
func (e *Engine) SetMetrics(m *observability.Metrics) {
	e.metrics = m
}

// Metrics returns the engine's metrics.
func (e *Engine) Metrics() *observability.Metrics {
	return e.metrics
}

// Assembler returns the payload builder used by the engine.
func (e *Engine) Assembler() *assembler.Assembler {
	return e.assembler
}

// Close releases the underlying fetcher.
func (e *Engine) Close() error {
	return e.fetcher.Close()
}

// Top runs one query for the given region code. An empty code means the
// default region. Errors are *types.InvalidRegionError, *types.FetchError
// or *types.ParseError; no partial payload is returned with an error.
func (e *Engine) Top(ctx context.Context, code string) (*assembler.Success, error) {
	start := time.Now()
	e.metrics.QueriesTotal.Add(1)
	e.metrics.ActiveQueries.Add(1)
	defer e.metrics.ActiveQueries.Add(-1)

	r, err := region.Resolve(code)
	if err != nil {
		e.metrics.InvalidRegions.Add(1)
		e.metrics.QueriesFailed.Add(1)
		e.logger.Info("rejected region", "region", code)
		return nil, err
	}

	req, err := fetcher.NewSearchRequest(e.cfg.Fetcher.SearchURL, r, e.cfg.Fetcher.UserAgent)
	if err != nil {
		e.metrics.QueriesFailed.Add(1)
		return nil, fmt.Errorf("build search request: %w", err)
	}

	e.metrics.FetchesTotal.Add(1)
	resp, err := e.fetcher.Fetch(ctx, req)
	if err != nil {
		e.metrics.FetchesFailed.Add(1)
		e.metrics.QueriesFailed.Add(1)
		e.logger.Error("fetch failed", "region", r.Code, "url", req.URLString(), "error", err)
		return nil, err
	}
	e.metrics.BytesDownloaded.Add(int64(len(resp.Body)))

	result, err := e.extractor.Extract(resp)
	if err != nil {
		e.metrics.QueriesFailed.Add(1)
		e.logger.Error("extraction failed", "region", r.Code, "error", err)
		return nil, err
	}

	e.metrics.ListingsExtracted.Add(int64(len(result.Listings)))
	if result.Strategy == parser.StrategyFallback {
		e.metrics.FallbackUsed.Add(1)
	}

	e.logger.Info("query completed",
		"region", r.Code,
		"request_id", req.ID,
		"backend", resp.Backend,
		"fetch", resp.Elapsed,
		"records", len(result.Listings),
		"strategy", result.Strategy,
		"duration", time.Since(start),
	)

	return e.assembler.Success(r, result.Listings), nil
}

// TopMany runs Top for each code concurrently and returns the payloads in
// input order. The first failure cancels the remaining queries.
func (e *Engine) TopMany(ctx context.Context, codes []string) ([]*assembler.Success, error) {
	payloads := make([]*assembler.Success, len(codes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelRegions)
	for i, code := range codes {
		g.Go(func() error {
			p, err := e.Top(gctx, code)
			if err != nil {
				return fmt.Errorf("region %q: %w", code, err)
			}
			payloads[i] = p
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return payloads, nil
}
