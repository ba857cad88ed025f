package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/IshaanNene/hallcrawl/internal/catalog"
	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/fetcher"
)

var pingRoots bool

// pingCmd creates the "ping" subcommand.
func pingCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the site answers",
		Long:  "GET the site origin over plain HTTP and report status and latency. Fails on any non-2xx answer.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, closer := setupLogger(cfg.Logging)
			defer closer.Close()

			targets := []string{cfg.Site.Origin}
			if pingRoots {
				cat, err := catalog.FromConfig(cfg)
				if err != nil {
					return fmt.Errorf("build catalog: %w", err)
				}
				targets = append(targets, cat.Seeds()...)
			}

			probe := fetcher.NewProbe(cfg.Engine.NavigationTimeout, logger)
			defer probe.Close()

			var (
				results []*fetcher.ProbeResult
				failed  int
			)
			for _, target := range targets {
				res, err := probe.Ping(cmd.Context(), target)
				if err != nil {
					return err
				}
				if !res.OK() {
					failed++
				}
				results = append(results, res)
			}
			printProbes(os.Stdout, results)

			if failed > 0 {
				return fmt.Errorf("%d of %d pages did not answer 2xx", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&pingRoots, "roots", false, "also check every category root")
	return cmd
}

// classifyCmd creates the "classify" subcommand.
func classifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <url>...",
		Short: "Show the category each URL belongs to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cat, err := catalog.FromConfig(cfg)
			if err != nil {
				return fmt.Errorf("build catalog: %w", err)
			}

			rows := make([]classification, 0, len(args))
			for _, u := range args {
				c, listing := cat.Classify(u)
				rows = append(rows, classification{URL: u, Category: c, Listing: listing})
			}
			printClassifications(os.Stdout, rows)
			return nil
		},
	}
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hallcrawl %s\n", config.Version)
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
			fmt.Printf("Engine:\n")
			fmt.Printf("  Concurrency:        %d\n", cfg.Engine.Concurrency)
			fmt.Printf("  Max Visits:         %d\n", cfg.Engine.MaxVisits)
			fmt.Printf("  Navigation Timeout: %s\n", cfg.Engine.NavigationTimeout)
			fmt.Printf("  Settle Delay:       %s\n", cfg.Engine.SettleDelay)
			fmt.Printf("\nBrowser:\n")
			fmt.Printf("  Headless:           %v\n", cfg.Browser.Headless)
			fmt.Printf("  Stealth:            %v\n", cfg.Browser.Stealth)
			fmt.Printf("  Window Size:        %s\n", cfg.Browser.WindowSize)
			fmt.Printf("\nSite:\n")
			fmt.Printf("  Origin:             %s\n", cfg.Site.Origin)
			slugs := make([]string, 0, len(cfg.Site.Categories))
			for slug := range cfg.Site.Categories {
				slugs = append(slugs, slug)
			}
			sort.Strings(slugs)
			for _, slug := range slugs {
				fmt.Printf("  %-19s %s\n", slug+":", cfg.Site.Categories[slug])
			}
			fmt.Printf("\nReveal:\n")
			fmt.Printf("  Control Selector:   %s\n", cfg.Reveal.ControlSelector)
			fmt.Printf("  Settle:             %s\n", cfg.Reveal.Settle)
			fmt.Printf("  Overlay Selectors:  %d configured\n", len(cfg.Reveal.OverlaySelectors))
			fmt.Printf("\nStorage:\n")
			fmt.Printf("  Type:               %s\n", cfg.Storage.Type)
			fmt.Printf("  Output Path:        %s\n", cfg.Storage.OutputPath)
			fmt.Printf("  Batch Size:         %d\n", cfg.Storage.BatchSize)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:               %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}
