package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/storetrends/internal/api"
	"github.com/IshaanNene/storetrends/internal/assembler"
	"github.com/IshaanNene/storetrends/internal/config"
	"github.com/IshaanNene/storetrends/internal/engine"
	"github.com/IshaanNene/storetrends/internal/fetcher"
	"github.com/IshaanNene/storetrends/internal/monitor"
	"github.com/IshaanNene/storetrends/internal/region"
	"github.com/IshaanNene/storetrends/internal/storage"
)

var (
	cfgFile     string
	verbose     bool
	regions     []string
	outputPath  string
	outputType  string
	export      bool
	printJSON   bool
	fetcherType string
	port        int
	maxRecords  int
	interval    time.Duration
	stateDir    string
	webhookURL  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "storetrends",
		Short: "Storefront top new releases, per region",
		Long: `storetrends fetches the storefront's "popular new releases" listing for a region
and turns it into ranked, structured records.

It runs as a JSON API (serve) or as a one-shot command (top) that can export
snapshots to JSON, JSONL, CSV or MongoDB.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&fetcherType, "fetcher", "", "fetcher backend: http, browser")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(topCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(regionsCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// serveCmd creates the "serve" subcommand.
func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	srv := api.NewServer(cfg, eng, eng.Assembler(), eng.Metrics(), logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("start API server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("received signal, shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("API server shutdown", "error", err)
	}

	eng.Metrics().LogSummary()
	return nil
}

// topCmd creates the "top" subcommand.
func topCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Fetch the top new releases for one or more regions",
		Example: `  storetrends top
  storetrends top -r de,fr,jp --json
  storetrends top -r us,uk --export -f csv -o ./output/top.csv`,
		RunE: runTop,
	}

	cmd.Flags().StringSliceVarP(&regions, "region", "r", []string{region.DefaultCode}, "region codes, comma-separated")
	cmd.Flags().BoolVar(&printJSON, "json", false, "print the full JSON payloads instead of a table")
	cmd.Flags().BoolVarP(&export, "export", "e", false, "write snapshots through the configured storage backend")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "export file path (default from config)")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "export format: json, jsonl, csv, mongodb")
	cmd.Flags().IntVarP(&maxRecords, "limit", "n", 0, "maximum listings per region (1-30)")

	return cmd
}

func runTop(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	payloads, err := eng.TopMany(ctx, regions)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if printJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		for _, p := range payloads {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
	} else {
		for _, p := range payloads {
			printTable(out, p)
		}
	}

	if export {
		if err := exportSnapshots(cfg, eng, payloads, logger); err != nil {
			return err
		}
	}

	logger.Info("top complete", "regions", len(payloads), "elapsed", time.Since(start).Round(time.Millisecond))
	return nil
}

func exportSnapshots(cfg *config.Config, eng *engine.Engine, payloads []*assembler.Success, logger *slog.Logger) error {
	store, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("create storage: %w", err)
	}

	snapshots := make([]*storage.Snapshot, len(payloads))
	var listings int
	for i, p := range payloads {
		snapshots[i] = storage.NewSnapshot(p)
		listings += p.Count
	}

	if err := store.Store(snapshots); err != nil {
		store.Close()
		return fmt.Errorf("store snapshots: %w", err)
	}
	if err := store.Close(); err != nil {
		return fmt.Errorf("close storage: %w", err)
	}

	eng.Metrics().ListingsExported.Add(int64(listings))
	logger.Info("snapshots exported", "backend", store.Name(), "snapshots", len(snapshots), "listings", listings)
	return nil
}

func printTable(w io.Writer, p *assembler.Success) {
	fmt.Fprintf(w, "\n%s (%s, %s) - %d listings\n", p.Region.Name, p.Region.Code, p.Region.Currency, p.Count)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tTITLE\tPRICE\tRELEASED\tREVIEWS\tPLATFORMS")
	for _, l := range p.Games {
		price := l.Price
		if l.OriginalPrice != nil {
			price = fmt.Sprintf("%s (was %s)", l.Price, *l.OriginalPrice)
		}
		reviews := "-"
		if l.ReviewSentiment != nil {
			reviews = *l.ReviewSentiment
			if l.ReviewCount != nil {
				reviews = fmt.Sprintf("%s (%d)", reviews, *l.ReviewCount)
			}
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			l.Rank, l.Title, price, l.ReleaseDate, reviews, strings.Join(l.Platforms, ", "))
	}
	tw.Flush()
}

// watchCmd creates the "watch" subcommand.
func watchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-check regions on an interval and report chart changes",
		Long: `watch runs the top query for each region immediately and then on every interval,
comparing each result with the last one recorded under --state-dir. Listings that
enter or leave the chart, move rank or change price are logged and, with
--webhook, posted as JSON.`,
		RunE: runWatch,
	}

	cmd.Flags().StringSliceVarP(&regions, "region", "r", []string{region.DefaultCode}, "region codes, comma-separated")
	cmd.Flags().DurationVar(&interval, "every", time.Hour, "interval between checks")
	cmd.Flags().StringVar(&stateDir, "state-dir", "./output/state", "directory holding the last snapshot per region")
	cmd.Flags().StringVar(&webhookURL, "webhook", "", "URL to POST detected changes to")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	if interval <= 0 {
		return fmt.Errorf("--every must be positive")
	}
	if webhookURL != "" {
		if err := config.ValidateURL(webhookURL); err != nil {
			return fmt.Errorf("invalid webhook URL: %w", err)
		}
	}

	eng, err := newEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer eng.Close()

	detector, err := monitor.NewChangeDetector(stateDir, logger)
	if err != nil {
		return err
	}

	notifier := monitor.NewNotifier(logger)
	notifier.AddChannel(&monitor.LogChannel{Logger: logger})
	if webhookURL != "" {
		notifier.AddChannel(&monitor.WebhookChannel{URL: webhookURL})
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := monitor.NewScheduler(interval, logger)
	sched.Start(ctx, func(ctx context.Context) error {
		payloads, err := eng.TopMany(ctx, regions)
		if err != nil {
			return err
		}
		for _, p := range payloads {
			changes, err := detector.Detect(storage.NewSnapshot(p))
			if err != nil {
				return fmt.Errorf("detect changes for %s: %w", p.Region.Code, err)
			}
			notifier.Notify(ctx, changes)
		}
		return nil
	})

	<-ctx.Done()
	logger.Info("received signal, shutting down...")
	sched.Stop()
	eng.Metrics().LogSummary()
	return nil
}

// regionsCmd creates the "regions" subcommand.
func regionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "regions",
		Short: "List supported region codes",
		Run: func(cmd *cobra.Command, args []string) {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "CODE\tNAME\tCURRENCY\tFLAG")
			for _, r := range region.All() {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Code, r.Name, r.Currency, r.Flag)
			}
			tw.Flush()
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storetrends %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Server:\n")
			fmt.Fprintf(w, "  Port:              %d\n", cfg.Server.Port)
			fmt.Fprintf(w, "\nFetcher:\n")
			fmt.Fprintf(w, "  Type:              %s\n", cfg.Fetcher.Type)
			fmt.Fprintf(w, "  Search URL:        %s\n", cfg.Fetcher.SearchURL)
			fmt.Fprintf(w, "  Request Timeout:   %s\n", cfg.Fetcher.RequestTimeout)
			fmt.Fprintf(w, "  Rate Limit:        %g req/s\n", cfg.Fetcher.RateLimit)
			fmt.Fprintf(w, "  Max Body Size:     %d bytes\n", cfg.Fetcher.MaxBodySize)
			fmt.Fprintf(w, "\nExtractor:\n")
			fmt.Fprintf(w, "  Max Records:       %d\n", cfg.Extractor.MaxRecords)
			fmt.Fprintf(w, "\nStorage:\n")
			fmt.Fprintf(w, "  Type:              %s\n", cfg.Storage.Type)
			fmt.Fprintf(w, "  Output Path:       %s\n", cfg.Storage.OutputPath)
			fmt.Fprintf(w, "  Mongo Mirror:      %v\n", cfg.Storage.MongoURI != "")
			fmt.Fprintf(w, "\nMetrics:\n")
			fmt.Fprintf(w, "  Enabled:           %v\n", cfg.Metrics.Enabled)
			fmt.Fprintf(w, "  Path:              %s\n", cfg.Metrics.Path)
			return nil
		},
	}
}

// loadConfig loads, overrides and validates configuration, then builds the logger from it.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	applyCLIOverrides(cfg)

	if err := config.Validate(cfg); err != nil {
		return nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, setupLogger(cfg.Logging), nil
}

func newEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	f, err := fetcher.New(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("create fetcher: %w", err)
	}
	return engine.New(cfg, f, logger), nil
}

// setupLogger creates a structured logger.
func setupLogger(lc config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(lc.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}

	var out io.Writer = os.Stderr
	if lc.Output == "stdout" {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var handler slog.Handler
	if lc.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// applyCLIOverrides applies command-line flag values to the config.
func applyCLIOverrides(cfg *config.Config) {
	if fetcherType != "" {
		cfg.Fetcher.Type = strings.ToLower(fetcherType)
	}
	if port > 0 {
		cfg.Server.Port = port
	}
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if outputType != "" {
		cfg.Storage.Type = strings.ToLower(outputType)
	}
	if maxRecords > 0 {
		cfg.Extractor.MaxRecords = maxRecords
	}
}
