package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/hallcrawl/internal/assemble"
	"github.com/IshaanNene/hallcrawl/internal/catalog"
	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/crawl"
	"github.com/IshaanNene/hallcrawl/internal/fetcher"
	"github.com/IshaanNene/hallcrawl/internal/observability"
	"github.com/IshaanNene/hallcrawl/internal/pipeline"
	"github.com/IshaanNene/hallcrawl/internal/storage"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

var (
	outputPath  string
	outputType  string
	concurrency int
	maxVisits   int
	headful     bool
	noStealth   bool
)

// crawlCmd creates the "crawl" subcommand.
func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawl every category of the site",
		Long:  "Seed every configured category root, crawl listings and detail pages, reveal modal content and store the resulting documents.",
		Args:  cobra.NoArgs,
		RunE:  runCrawl,
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output directory for file backends")
	cmd.Flags().StringVarP(&outputType, "format", "f", "", "storage backend: json, jsonl, csv, mongodb")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 0, "number of browser pages working in parallel")
	cmd.Flags().IntVarP(&maxVisits, "max-visits", "m", -1, "maximum page visits (0 = unlimited)")
	cmd.Flags().BoolVar(&headful, "headful", false, "show the browser window")
	cmd.Flags().BoolVar(&noStealth, "no-stealth", false, "disable stealth page patches")

	return cmd
}

// applyCrawlOverrides applies command-line flag values to the config.
func applyCrawlOverrides(cfg *config.Config) {
	if outputPath != "" {
		cfg.Storage.OutputPath = outputPath
	}
	if outputType != "" {
		cfg.Storage.Type = outputType
	}
	if concurrency > 0 {
		cfg.Engine.Concurrency = concurrency
	}
	if maxVisits >= 0 {
		cfg.Engine.MaxVisits = maxVisits
	}
	if headful {
		cfg.Browser.Headless = false
	}
	if noStealth {
		cfg.Browser.Stealth = false
	}
}

func runCrawl(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCrawlOverrides(cfg)
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger, closer := setupLogger(cfg.Logging)
	defer closer.Close()

	cat, err := catalog.FromConfig(cfg)
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		metrics.StartServer(ctx, cfg.Metrics.Port, cfg.Metrics.Path)
	}

	logger.Info("starting crawl",
		"origin", cfg.Site.Origin,
		"categories", len(cfg.Site.Categories),
		"concurrency", cfg.Engine.Concurrency,
		"max_visits", cfg.Engine.MaxVisits,
		"storage", cfg.Storage.Type,
	)

	pool, err := fetcher.NewBrowserPool(cfg.Browser, cfg.Engine.NavigationTimeout, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	start := time.Now()
	orch := crawl.New(cfg, cat, pool, metrics, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		sig := <-sigCh
		logger.Info("received signal, shutting down...", "signal", sig)
		orch.Stop()
	}()

	result, runErr := orch.Run(ctx)
	if result == nil {
		return runErr
	}
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, types.ErrCrawlStopped) {
		logger.Warn("crawl interrupted, storing partial result")
		runErr = nil
	}

	summary, err := export(context.WithoutCancel(ctx), result, cfg.Storage, metrics, logger)
	if err != nil {
		return err
	}
	summary.Elapsed = time.Since(start)
	summary.Stats = orch.Stats().Snapshot()

	printSummary(os.Stdout, result, summary, cfg.Storage)
	return runErr
}

// exportSummary describes what export wrote.
type exportSummary struct {
	Stored  int
	Dropped int
	Elapsed time.Duration
	Stats   map[string]any
}

// export assembles result into documents, runs them through the default
// pipeline and writes them to the configured backend in batches.
func export(ctx context.Context, result *types.Result, cfg config.StorageConfig,
	metrics *observability.Metrics, logger *slog.Logger) (*exportSummary, error) {
	backend, err := storage.New(cfg, logger)
	if err != nil {
		return nil, err
	}
	batcher := storage.NewBatcher(backend, cfg.BatchSize)
	pipe := pipeline.Default(logger)
	summary := &exportSummary{}

	for doc, err := range assemble.New(logger).Documents(result) {
		if err != nil {
			backend.Close()
			return nil, fmt.Errorf("assemble documents: %w", err)
		}
		if err := ctx.Err(); err != nil {
			backend.Close()
			return nil, err
		}

		out, err := pipe.Process(doc)
		if err != nil {
			logger.Warn("document rejected", "id", doc.ID, "error", err)
		}
		if out == nil {
			summary.Dropped++
			metrics.DocumentDropped()
			continue
		}
		if err := batcher.Add(out); err != nil {
			backend.Close()
			return nil, err
		}
	}

	if err := batcher.Flush(); err != nil {
		backend.Close()
		return nil, err
	}
	if err := backend.Close(); err != nil {
		return nil, err
	}

	summary.Stored = batcher.Stored()
	metrics.DocumentsStored(summary.Stored)
	logger.Info("documents stored",
		"backend", backend.Name(),
		"stored", summary.Stored,
		"dropped", summary.Dropped,
	)
	return summary, nil
}
