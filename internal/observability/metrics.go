package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational metrics for top-listing queries.
type Metrics struct {
	// Query metrics
	QueriesTotal   atomic.Int64
	QueriesFailed  atomic.Int64
	InvalidRegions atomic.Int64
	ActiveQueries  atomic.Int32

	// Fetch metrics
	FetchesTotal    atomic.Int64
	FetchesFailed   atomic.Int64
	BytesDownloaded atomic.Int64

	// Extraction metrics
	ListingsExtracted atomic.Int64
	FallbackUsed      atomic.Int64
	ListingsExported  atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		kind  string
		value int64
	}{
		{"storetrends_queries_total", "Total top-listing queries handled", "counter", m.QueriesTotal.Load()},
		{"storetrends_queries_failed_total", "Total queries that returned a failure payload", "counter", m.QueriesFailed.Load()},
		{"storetrends_invalid_regions_total", "Total queries rejected for an unknown region", "counter", m.InvalidRegions.Load()},
		{"storetrends_active_queries", "Queries currently in flight", "gauge", int64(m.ActiveQueries.Load())},
		{"storetrends_fetches_total", "Total storefront page fetches", "counter", m.FetchesTotal.Load()},
		{"storetrends_fetches_failed_total", "Total failed storefront page fetches", "counter", m.FetchesFailed.Load()},
		{"storetrends_bytes_downloaded_total", "Total bytes downloaded", "counter", m.BytesDownloaded.Load()},
		{"storetrends_listings_extracted_total", "Total listings extracted", "counter", m.ListingsExtracted.Load()},
		{"storetrends_fallback_used_total", "Total pages extracted with the link scan", "counter", m.FallbackUsed.Load()},
		{"storetrends_listings_exported_total", "Total listings written to storage", "counter", m.ListingsExported.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s %s\n", metric.name, metric.kind)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"queries_total":      m.QueriesTotal.Load(),
		"queries_failed":     m.QueriesFailed.Load(),
		"invalid_regions":    m.InvalidRegions.Load(),
		"active_queries":     int64(m.ActiveQueries.Load()),
		"fetches_total":      m.FetchesTotal.Load(),
		"fetches_failed":     m.FetchesFailed.Load(),
		"bytes_downloaded":   m.BytesDownloaded.Load(),
		"listings_extracted": m.ListingsExtracted.Load(),
		"fallback_used":      m.FallbackUsed.Load(),
		"listings_exported":  m.ListingsExported.Load(),
	}
}

// LogSummary writes the current counters at Info level.
func (m *Metrics) LogSummary() {
	snap := m.Snapshot()
	args := make([]any, 0, len(snap)*2)
	for _, key := range []string{"queries_total", "queries_failed", "invalid_regions", "fetches_failed", "listings_extracted", "fallback_used", "listings_exported"} {
		args = append(args, key, snap[key])
	}
	m.logger.Info("metrics summary", args...)
}
