package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"golang.org/x/sync/errgroup"

	"github.com/IshaanNene/hallcrawl/internal/automation"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Scheduler runs the worker pool. Every worker opens one page when it starts
// and reuses it for all of its visits.
type Scheduler struct {
	engine *Engine
	logger *slog.Logger
}

// NewScheduler creates a new Scheduler.
func NewScheduler(e *Engine) *Scheduler {
	return &Scheduler{
		engine: e,
		logger: e.logger.With("component", "scheduler"),
	}
}

// Run starts the workers and blocks until they have all returned. The first
// worker that cannot open a page cancels the rest.
func (s *Scheduler) Run(ctx context.Context, h Handler) error {
	concurrency := s.engine.cfg.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	s.logger.Info("starting worker pool", "workers", concurrency)

	g, ctx := errgroup.WithContext(ctx)
	for i := range concurrency {
		g.Go(func() error {
			return s.worker(ctx, i, h)
		})
	}
	return g.Wait()
}

func (s *Scheduler) worker(ctx context.Context, id int, h Handler) error {
	logger := s.logger.With("worker_id", id)

	page, err := s.engine.pages.NewPage(ctx)
	if err != nil {
		s.engine.frontier.Close()
		return fmt.Errorf("worker %d: open page: %w", id, err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			logger.Warn("closing page", "error", err)
		}
	}()

	for {
		req := s.engine.frontier.Pop(ctx)
		if req == nil || ctx.Err() != nil {
			logger.Debug("worker exiting")
			return nil
		}

		if err := s.engine.admit(); err != nil {
			s.engine.stats.VisitsRefused.Add(1)
			s.engine.metrics.VisitRefused()
			logger.Info("refusing visit", "url", req.URL, "error", err)
			s.engine.done()
			continue
		}

		s.engine.stats.ActiveWorkers.Add(1)
		s.visit(ctx, logger, page, req, h)
		s.engine.stats.ActiveWorkers.Add(-1)
		s.engine.done()
	}
}

// visit navigates page to req and hands it to h. Failures and panics are
// reported to h.HandleFailure and never stop the worker.
func (s *Scheduler) visit(ctx context.Context, logger *slog.Logger, page automation.Page, req *Request, h Handler) {
	logger = logger.With("url", req.URL)

	defer func() {
		if r := recover(); r != nil {
			logger.Error("visit panicked", "panic", r, "stack", string(debug.Stack()))
			s.fail(req.URL, h, &types.VisitError{URL: req.URL, Stage: "panic", Err: fmt.Errorf("%v", r)})
		}
	}()

	if err := s.navigate(ctx, logger, page, req.URL); err != nil {
		logger.Warn("navigation failed", "error", err)
		s.fail(req.URL, h, &types.VisitError{URL: req.URL, Stage: "navigate", Err: err})
		return
	}

	v := &Visit{URL: req.URL, Parent: req.Parent, Page: page, engine: s.engine}
	if err := h.HandleVisit(ctx, v); err != nil {
		logger.Warn("visit failed", "error", err)
		s.fail(req.URL, h, err)
		return
	}
	s.engine.stats.VisitsCompleted.Add(1)
}

func (s *Scheduler) navigate(ctx context.Context, logger *slog.Logger, page automation.Page, url string) error {
	navCtx := ctx
	if t := s.engine.cfg.NavigationTimeout; t > 0 {
		var cancel context.CancelFunc
		navCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}

	if err := page.Navigate(navCtx, url); err != nil {
		return err
	}
	if err := page.WaitIdle(navCtx); err != nil {
		logger.Warn("page did not settle", "error", err)
	}
	return page.Wait(ctx, s.engine.cfg.SettleDelay)
}

func (s *Scheduler) fail(url string, h Handler, err error) {
	s.engine.stats.VisitsFailed.Add(1)
	h.HandleFailure(url, err)
}
