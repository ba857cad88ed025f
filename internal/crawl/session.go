// Package crawl drives one crawl run: it routes every visited page by
// category, collects the records into a Result and folds revealed abilities
// into a shared consolidation store.
package crawl

import (
	"context"
	"errors"
	"log/slog"

	"github.com/IshaanNene/hallcrawl/internal/catalog"
	"github.com/IshaanNene/hallcrawl/internal/consolidate"
	"github.com/IshaanNene/hallcrawl/internal/engine"
	"github.com/IshaanNene/hallcrawl/internal/extract"
	"github.com/IshaanNene/hallcrawl/internal/observability"
	"github.com/IshaanNene/hallcrawl/internal/parser"
	"github.com/IshaanNene/hallcrawl/internal/reveal"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Session is the per-run state shared by every worker. It implements
// engine.Handler.
type Session struct {
	catalog   *catalog.Catalog
	extractor *extract.Extractor
	revealer  *reveal.Revealer
	store     *consolidate.Store
	result    *types.Result
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// NewSession creates a Session with an empty Result and consolidation store.
func NewSession(cat *catalog.Catalog, extractor *extract.Extractor, revealer *reveal.Revealer,
	metrics *observability.Metrics, logger *slog.Logger) *Session {
	return &Session{
		catalog:   cat,
		extractor: extractor,
		revealer:  revealer,
		store:     consolidate.NewStore(),
		result:    types.NewResult(),
		metrics:   metrics,
		logger:    logger.With("component", "session"),
	}
}

// Result returns the records collected so far.
func (s *Session) Result() *types.Result {
	return s.result
}

// Store returns the ability consolidation store.
func (s *Session) Store() *consolidate.Store {
	return s.store
}

// Seed marks url as queued.
func (s *Session) Seed(url string) {
	s.result.Transition(url, types.StateSeeded)
}

// Finish copies the consolidated abilities into the Result.
func (s *Session) Finish() *types.Result {
	abilities := s.store.Abilities()
	s.result.SetAbilities(abilities)
	s.metrics.SetAbilities(len(abilities))
	return s.result
}

// HandleVisit routes one page: listing pages are expanded or extracted in
// place, detail pages are extracted and, for interactive categories, revealed.
func (s *Session) HandleVisit(ctx context.Context, v *engine.Visit) error {
	cat, listing := s.catalog.Classify(v.URL)
	logger := s.logger.With("url", v.URL, "category", cat.String(), "listing", listing)

	markup, err := v.Page.Markup()
	if err != nil {
		return &types.VisitError{URL: v.URL, Stage: "markup", Err: err}
	}
	doc, err := parser.Parse(markup)
	if err != nil {
		return &types.VisitError{URL: v.URL, Stage: "parse", Err: err}
	}

	var label string
	if listing {
		label, err = s.listing(ctx, logger, v, cat, doc)
	} else {
		label, err = s.detail(ctx, logger, v, cat, doc)
	}
	if err != nil {
		return err
	}

	s.result.Transition(v.URL, types.StateRecorded)
	s.metrics.VisitRecorded(label)
	return nil
}

// HandleFailure marks a failed visit skipped.
func (s *Session) HandleFailure(url string, err error) {
	stage := "visit"
	var visitErr *types.VisitError
	if errors.As(err, &visitErr) {
		stage = visitErr.Stage
	}
	s.result.Transition(url, types.StateSkipped)
	s.metrics.VisitSkipped(stage)
	s.logger.Warn("visit skipped", "url", url, "stage", stage, "error", err)
}

func (s *Session) listing(ctx context.Context, logger *slog.Logger, v *engine.Visit,
	cat types.Category, doc *parser.Document) (string, error) {
	s.result.Transition(v.URL, types.StateListing)

	if cat == types.CategoryArtifacts {
		s.result.Transition(v.URL, types.StateDirectExtraction)
		leaves, report, err := s.revealer.Artifacts(ctx, v.Page, v.URL)
		if err != nil {
			return "", err
		}
		s.result.AddLeaves(leaves)

		rec, _ := s.extractor.Page(cat, v.URL, doc)
		s.result.AddPage(rec)

		revealed, skipped := report.Counts()
		logger.Info("artifact listing processed", "artifacts", len(leaves), "revealed", revealed, "skipped", skipped)
		return rec.Category, nil
	}

	s.result.Transition(v.URL, types.StateLinkDiscovery)
	links := s.catalog.DiscoverLinksIn(doc, v.URL)
	queued := 0
	for _, link := range links {
		if v.Enqueue(link) == 1 {
			s.result.Transition(link, types.StateSeeded)
			queued++
		}
	}
	logger.Info("listing links discovered", "found", len(links), "queued", queued)

	if !cat.ExtractsListing() {
		return cat.String(), nil
	}

	s.result.Transition(v.URL, types.StateDirectExtraction)
	rec, leaves := s.extractor.Page(cat, v.URL, doc)
	s.result.AddPage(rec)
	s.result.AddLeaves(leaves)
	logger.Info("listing extracted", "title", rec.Title, "leaves", len(leaves))
	return rec.Category, nil
}

func (s *Session) detail(ctx context.Context, logger *slog.Logger, v *engine.Visit,
	cat types.Category, doc *parser.Document) (string, error) {
	s.result.Transition(v.URL, types.StateDetail)

	rec, leaves := s.extractor.Page(cat, v.URL, doc)
	logger.Info("detail page parsed", "label", rec.Category, "title", rec.Title)

	if cat.Interactive() {
		name := rec.Title
		if name == "" {
			name = "Unknown"
		}
		ref := types.EntityRef{Name: name, URL: v.URL, Category: types.EntityCategoryFor(v.URL)}

		report, err := s.revealer.Reveal(ctx, v.Page, ref, s.store)
		if err != nil {
			logger.Warn("reveal failed, keeping static fields", "error", err)
		} else {
			report.Apply(rec)
			revealed, skipped := report.Counts()
			logger.Debug("controls revealed", "revealed", revealed, "skipped", skipped, "abilities", len(report.Abilities))
		}
		s.result.Transition(v.URL, types.StateRevealed)
	}

	s.result.AddPage(rec)
	s.result.AddLeaves(leaves)
	return rec.Category, nil
}
