package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Engine.Concurrency < 1 {
		return fmt.Errorf("engine.concurrency must be >= 1, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.Concurrency > 64 {
		return fmt.Errorf("engine.concurrency must be <= 64, got %d", cfg.Engine.Concurrency)
	}
	if cfg.Engine.MaxVisits < 0 {
		return fmt.Errorf("engine.max_visits must be >= 0, got %d", cfg.Engine.MaxVisits)
	}
	if cfg.Engine.NavigationTimeout <= 0 {
		return fmt.Errorf("engine.navigation_timeout must be > 0")
	}
	if cfg.Engine.SettleDelay < 0 {
		return fmt.Errorf("engine.settle_delay must be >= 0")
	}

	if err := ValidateURL(cfg.Site.Origin); err != nil {
		return fmt.Errorf("site.origin: %w", err)
	}
	if len(cfg.Site.Categories) == 0 {
		return fmt.Errorf("site.categories: %w", types.ErrNoSeeds)
	}
	for slug, path := range cfg.Site.Categories {
		if types.ParseCategory(slug) == types.CategoryUnknown {
			return fmt.Errorf("site.categories: unknown category %q", slug)
		}
		if !strings.HasPrefix(path, "/") {
			return fmt.Errorf("site.categories.%s must be an absolute path, got %q", slug, path)
		}
	}

	if strings.TrimSpace(cfg.Reveal.ControlSelector) == "" {
		return fmt.Errorf("reveal.control_selector must not be empty")
	}
	if len(cfg.Reveal.OverlaySelectors) == 0 {
		return fmt.Errorf("reveal.overlay_selectors must list at least one selector")
	}
	if cfg.Reveal.Settle < 0 || cfg.Reveal.DismissSettle < 0 || cfg.Reveal.DescriptionSettle < 0 {
		return fmt.Errorf("reveal settle intervals must be >= 0")
	}

	validStorageTypes := map[string]bool{
		"json": true, "jsonl": true, "csv": true, "mongodb": true,
	}
	if !validStorageTypes[cfg.Storage.Type] {
		return fmt.Errorf("storage.type %q is not supported (valid: json, jsonl, csv, mongodb)", cfg.Storage.Type)
	}
	if cfg.Storage.BatchSize < 1 {
		return fmt.Errorf("storage.batch_size must be >= 1, got %d", cfg.Storage.BatchSize)
	}
	if cfg.Storage.Type == "mongodb" && cfg.Storage.MongoURI == "" {
		return fmt.Errorf("storage.mongo_uri is required for mongodb storage")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
