package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IshaanNene/hallcrawl/internal/automation"
	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/observability"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

// State represents the engine's current lifecycle state.
type State int32

const (
	StateIdle     State = 0
	StateRunning  State = 1
	StateStopping State = 2
	StateStopped  State = 3
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Stats tracks crawl statistics.
type Stats struct {
	VisitsDispatched atomic.Int64
	VisitsCompleted  atomic.Int64
	VisitsFailed     atomic.Int64
	VisitsRefused    atomic.Int64
	URLsEnqueued     atomic.Int64
	URLsFiltered     atomic.Int64
	ActiveWorkers    atomic.Int32
	StartTime        time.Time
}

// Snapshot returns a copy of stats safe for reading.
func (s *Stats) Snapshot() map[string]any {
	return map[string]any{
		"visits_dispatched": s.VisitsDispatched.Load(),
		"visits_completed":  s.VisitsCompleted.Load(),
		"visits_failed":     s.VisitsFailed.Load(),
		"visits_refused":    s.VisitsRefused.Load(),
		"urls_enqueued":     s.URLsEnqueued.Load(),
		"urls_filtered":     s.URLsFiltered.Load(),
		"active_workers":    s.ActiveWorkers.Load(),
		"elapsed":           time.Since(s.StartTime).String(),
	}
}

// Visit is one page handed to a Handler. The page is already navigated and
// settled, and belongs to the calling worker for the duration of the visit.
type Visit struct {
	URL    string
	Parent string
	Page   automation.Page

	engine *Engine
}

// Enqueue queues further URLs discovered by the visit. It returns the number
// of URLs that were new.
func (v *Visit) Enqueue(urls ...string) int {
	n := 0
	for _, u := range urls {
		if v.engine.add(&Request{URL: u, Parent: v.URL, Priority: PriorityDiscovered}) == nil {
			n++
		}
	}
	return n
}

// Handler processes visited pages.
type Handler interface {
	// HandleVisit processes one page. A returned error marks the visit failed.
	HandleVisit(ctx context.Context, v *Visit) error

	// HandleFailure is told about every failed visit: navigation errors,
	// handler errors and recovered panics.
	HandleFailure(url string, err error)
}

// Engine dispatches queued URLs to a pool of workers, each driving its own page.
type Engine struct {
	cfg       config.EngineConfig
	logger    *slog.Logger
	frontier  *Frontier
	dedup     *Deduplicator
	scheduler *Scheduler
	pages     automation.PageSource
	metrics   *observability.Metrics

	state   atomic.Int32
	stats   *Stats
	pending atomic.Int64

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New creates a new Engine. metrics may be nil.
func New(cfg config.EngineConfig, pages automation.PageSource, metrics *observability.Metrics, logger *slog.Logger) *Engine {
	e := &Engine{
		cfg:      cfg,
		logger:   logger.With("component", "engine"),
		frontier: NewFrontier(),
		dedup:    NewDeduplicator(cfg.MaxVisits),
		pages:    pages,
		metrics:  metrics,
		stats:    &Stats{},
	}
	e.scheduler = NewScheduler(e)
	return e
}

// AddSeed queues a seed URL ahead of discovered URLs.
func (e *Engine) AddSeed(rawURL string) error {
	if err := config.ValidateURL(rawURL); err != nil {
		return err
	}
	return e.add(&Request{URL: rawURL, Priority: PrioritySeed})
}

func (e *Engine) add(req *Request) error {
	if !e.dedup.TryMark(req.URL) {
		e.stats.URLsFiltered.Add(1)
		return types.ErrDuplicate
	}
	e.pending.Add(1)
	if !e.frontier.Push(req) {
		e.pending.Add(-1)
		return types.ErrCrawlStopped
	}
	e.stats.URLsEnqueued.Add(1)
	e.metrics.SetQueueDepth(e.frontier.Len())
	return nil
}

// done settles one queued request and closes the frontier once nothing is
// queued or in flight.
func (e *Engine) done() {
	if e.pending.Add(-1) == 0 {
		e.frontier.Close()
	}
	e.metrics.SetQueueDepth(e.frontier.Len())
}

// Run visits queued URLs with h until the frontier is exhausted or ctx is done.
func (e *Engine) Run(ctx context.Context, h Handler) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		if e.state.CompareAndSwap(int32(StateStopping), int32(StateStopped)) {
			return types.ErrCrawlStopped
		}
		return fmt.Errorf("engine is in state %s, cannot start", State(e.state.Load()))
	}
	if e.pending.Load() == 0 {
		e.state.Store(int32(StateStopped))
		return types.ErrNoSeeds
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	if e.GetState() != StateRunning {
		cancel()
	}

	e.logger.Info("engine starting",
		"concurrency", e.cfg.Concurrency,
		"max_visits", e.cfg.MaxVisits,
		"seeds", e.frontier.Len(),
	)
	e.stats.StartTime = time.Now()

	err := e.scheduler.Run(ctx, h)

	if left := e.frontier.Drain(); len(left) > 0 {
		e.logger.Warn("crawl ended with queued URLs", "remaining", len(left))
	}
	e.state.Store(int32(StateStopped))
	e.logger.Info("engine stopped", "stats", e.stats.Snapshot())
	return err
}

// Stop ends the crawl. In-flight visits are cancelled and queued URLs are
// left unvisited. A Stop before Run makes Run return ErrCrawlStopped.
func (e *Engine) Stop() {
	if !e.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) &&
		!e.state.CompareAndSwap(int32(StateIdle), int32(StateStopping)) {
		return
	}
	e.logger.Info("engine stopping...")
	e.frontier.Close()
	e.mu.Lock()
	if e.cancel != nil {
		e.cancel()
	}
	e.mu.Unlock()
}

// Stats returns the current crawl statistics.
func (e *Engine) Stats() *Stats {
	return e.stats
}

// GetState returns the current engine state.
func (e *Engine) GetState() State {
	return State(e.state.Load())
}

// admit reserves one unit of the visit budget. It returns ErrBudgetExhausted
// once the budget is spent; a budget of zero or less is unlimited.
func (e *Engine) admit() error {
	n := e.stats.VisitsDispatched.Add(1)
	if e.cfg.MaxVisits > 0 && n > int64(e.cfg.MaxVisits) {
		e.stats.VisitsDispatched.Add(-1)
		return types.ErrBudgetExhausted
	}
	return nil
}
