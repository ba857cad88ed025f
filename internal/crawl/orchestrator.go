package crawl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/IshaanNene/hallcrawl/internal/automation"
	"github.com/IshaanNene/hallcrawl/internal/catalog"
	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/engine"
	"github.com/IshaanNene/hallcrawl/internal/extract"
	"github.com/IshaanNene/hallcrawl/internal/observability"
	"github.com/IshaanNene/hallcrawl/internal/reveal"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Orchestrator runs complete crawls of one site.
type Orchestrator struct {
	cfg     *config.Config
	catalog *catalog.Catalog
	pages   automation.PageSource
	metrics *observability.Metrics
	logger  *slog.Logger

	mu      sync.Mutex
	engine  *engine.Engine
	stopped bool
	stats   *engine.Stats
}

// New creates an Orchestrator. metrics may be nil.
func New(cfg *config.Config, cat *catalog.Catalog, pages automation.PageSource,
	metrics *observability.Metrics, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		cfg:     cfg,
		catalog: cat,
		pages:   pages,
		metrics: metrics,
		logger:  logger.With("component", "orchestrator"),
	}
}

// Run seeds every category root and crawls until the queue is exhausted, the
// visit budget is spent or ctx is done. Each call starts from an empty Result.
func (o *Orchestrator) Run(ctx context.Context) (*types.Result, error) {
	seeds := o.catalog.Seeds()
	if len(seeds) == 0 {
		return nil, types.ErrNoSeeds
	}

	extractor := extract.New(o.catalog.Origin(), o.logger)
	revealer := reveal.New(reveal.OptionsFrom(o.cfg.Reveal), extractor, o.metrics, o.logger)
	session := NewSession(o.catalog, extractor, revealer, o.metrics, o.logger)

	eng := engine.New(o.cfg.Engine, o.pages, o.metrics, o.logger)
	o.mu.Lock()
	o.engine = eng
	o.stats = eng.Stats()
	if o.stopped {
		eng.Stop()
	}
	o.mu.Unlock()
	for _, seed := range seeds {
		if err := eng.AddSeed(seed); err != nil {
			return nil, err
		}
		session.Seed(seed)
	}

	o.logger.Info("starting crawl", "seeds", len(seeds), "max_visits", o.cfg.Engine.MaxVisits)
	start := time.Now()

	err := eng.Run(ctx, session)
	result := session.Finish()

	totals := result.Totals()
	o.logger.Info("crawl completed",
		"pages", totals["pages"],
		"abilities", totals["abilities"],
		"artifacts", totals["artifacts"],
		"definitions", totals["definitions"],
		"conditions", totals["conditions"],
		"faqs", totals["faqs"],
		"errata", totals["errata"],
		"visited", result.Visited,
		"skipped", result.Skipped,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	o.logger.Info("page categories", "counts", result.CategoryCounts())

	return result, err
}

// Stop ends the current run. Pages already extracted stay in its Result. Once
// stopped, later runs return ErrCrawlStopped with an empty Result.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stopped = true
	if o.engine != nil {
		o.engine.Stop()
	}
}

// Stats returns the engine statistics of the last run, or nil before the first run.
func (o *Orchestrator) Stats() *engine.Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stats
}
