// Package reveal drives the click, capture and dismiss sequence that surfaces
// content rendered only inside overlays.
package reveal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/hallcrawl/internal/automation"
	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/extract"
	"github.com/IshaanNene/hallcrawl/internal/observability"
	"github.com/IshaanNene/hallcrawl/internal/parser"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

const (
	costPattern      = `Cost:\s*([^\n]+)`
	labelCostPattern = `\((\d+(?:AP|F|S))\)`
)

// Status is the result of handling one control.
type Status string

const (
	StatusRevealed Status = "revealed"
	StatusSkipped  Status = "skipped"
)

// Reasons a control is skipped.
const (
	ReasonStale      = "stale"
	ReasonHidden     = "hidden"
	ReasonDisabled   = "disabled"
	ReasonEmptyLabel = "empty_label"
	ReasonFiltered   = "filtered"
	ReasonClick      = "click_failed"
	ReasonMarkup     = "markup_unreadable"
	ReasonNoOverlay  = "no_overlay"
	ReasonNoContent  = "no_content"
	ReasonCanceled   = "canceled"
	ReasonDuplicate  = "duplicate"
)

// Outcome records what happened to one control. Index is the control's
// position in document order.
type Outcome struct {
	Index  int
	Label  string
	Status Status
	Reason string
	Err    error
}

// Ability is one revealed ability as captured on a page.
type Ability struct {
	Title string
	Text  string
	Kind  types.AbilityKind
	Cost  string
}

// Report aggregates the result of revealing one page.
type Report struct {
	Abilities []Ability
	Fragments []string
	Outcomes  []Outcome
}

// Counts returns the number of revealed and skipped controls.
func (r *Report) Counts() (revealed, skipped int) {
	for _, o := range r.Outcomes {
		if o.Status == StatusRevealed {
			revealed++
		} else {
			skipped++
		}
	}
	return revealed, skipped
}

// Text joins the captured fragments.
func (r *Report) Text() string {
	return strings.Join(r.Fragments, "\n")
}

// Apply adds the revealed ability names to the record's lists and appends the
// captured fragments to its text.
func (r *Report) Apply(rec *types.PageRecord) {
	for _, a := range r.Abilities {
		rec.AddAbility(a.Kind, a.Title)
	}
	if len(r.Fragments) > 0 {
		rec.Text = rec.Text + "\n\n" + r.Text()
	}
}

// Sink receives every revealed ability.
type Sink interface {
	RecordAbility(title, text string, kind types.AbilityKind, cost string, ref types.EntityRef) bool
}

// Options tunes the protocol.
type Options struct {
	ControlSelector    string
	Settle             time.Duration
	DismissSettle      time.Duration
	DescriptionSettle  time.Duration
	OverlaySelectors   []string
	CloseSelectors     []string
	ArtifactSkipLabels []string
}

// OptionsFrom copies the reveal section of the configuration.
func OptionsFrom(cfg config.RevealConfig) Options {
	return Options{
		ControlSelector:    cfg.ControlSelector,
		Settle:             cfg.Settle,
		DismissSettle:      cfg.DismissSettle,
		DescriptionSettle:  cfg.DescriptionSettle,
		OverlaySelectors:   cfg.OverlaySelectors,
		CloseSelectors:     cfg.CloseSelectors,
		ArtifactSkipLabels: cfg.ArtifactSkipLabels,
	}
}

// Revealer runs the protocol against one page at a time. A Revealer holds no
// per-page state and may be shared by workers that each own their page.
type Revealer struct {
	opts      Options
	extractor *extract.Extractor
	metrics   *observability.Metrics
	logger    *slog.Logger
}

// New creates a Revealer. metrics may be nil.
func New(opts Options, extractor *extract.Extractor, metrics *observability.Metrics, logger *slog.Logger) *Revealer {
	return &Revealer{
		opts:      opts,
		extractor: extractor,
		metrics:   metrics,
		logger:    logger.With("component", "revealer"),
	}
}

// Reveal clicks every control on the page bottom to top, capturing the overlay
// each one opens, then clicks the description control last. Control failures
// are reported as skipped outcomes; only an unreadable page is an error.
func (r *Revealer) Reveal(ctx context.Context, page automation.Page, ref types.EntityRef, sink Sink) (*Report, error) {
	markup, err := page.Markup()
	if err != nil {
		return nil, &types.VisitError{URL: ref.URL, Stage: "reveal", Err: err}
	}
	doc, err := parser.Parse(markup)
	if err != nil {
		return nil, &types.VisitError{URL: ref.URL, Stage: "reveal", Err: err}
	}
	kinds := BuildKindMap(doc, r.opts.ControlSelector)

	controls, err := page.Controls(r.opts.ControlSelector)
	if err != nil {
		return nil, &types.VisitError{URL: ref.URL, Stage: "controls", Err: err}
	}

	report := &Report{}
	desc, others := r.partition(ref.URL, controls, report)
	for j := len(others) - 1; j >= 0; j-- {
		i := others[j]
		if err := ctx.Err(); err != nil {
			r.record(ref.URL, report, Outcome{Index: i, Status: StatusSkipped, Reason: ReasonCanceled, Err: err})
			continue
		}
		r.record(ref.URL, report, r.revealOne(ctx, page, i, controls[i], kinds, ref, sink, report))
	}
	if desc >= 0 {
		r.record(ref.URL, report, r.revealDescription(ctx, page, desc, controls[desc], report))
	}

	revealed, skipped := report.Counts()
	r.logger.Debug("page revealed",
		"url", ref.URL,
		"controls", len(controls),
		"revealed", revealed,
		"skipped", skipped,
	)
	return report, nil
}

// partition splits controls into the description control and the ability
// controls, both as indexes in document order. The description control is the
// first clickable one whose label mentions a description; every other
// description control is reported as skipped and never clicked.
func (r *Revealer) partition(pageURL string, controls []automation.Control, report *Report) (int, []int) {
	desc := -1
	var others []int
	for i, c := range controls {
		raw, err := c.Label()
		if err != nil || !isDescription(raw) {
			others = append(others, i)
			continue
		}
		label, reason, err := ready(c)
		switch {
		case reason != "":
			r.record(pageURL, report, skipped(i, normalizeLabel(raw), reason, err))
		case desc >= 0:
			r.record(pageURL, report, skipped(i, label, ReasonDuplicate, errors.New("description control already chosen")))
		default:
			desc = i
		}
	}
	return desc, others
}

func (r *Revealer) revealOne(ctx context.Context, page automation.Page, i int, c automation.Control,
	kinds KindMap, ref types.EntityRef, sink Sink, report *Report) Outcome {
	label, reason, err := ready(c)
	if reason != "" {
		return skipped(i, label, reason, err)
	}
	if err := c.Click(); err != nil {
		return skipped(i, label, ReasonClick, err)
	}
	if err := page.Wait(ctx, r.opts.Settle); err != nil {
		return skipped(i, label, ReasonCanceled, err)
	}

	overlay, err := r.overlay(page)
	if err != nil {
		r.dismiss(ctx, page)
		return skipped(i, label, ReasonMarkup, err)
	}
	if overlay == nil {
		r.dismiss(ctx, page)
		return skipped(i, label, ReasonNoOverlay, types.ErrNoOverlay)
	}

	text := strings.Join(parser.Lines(overlay), "\n")
	a := Ability{
		Title: label,
		Text:  text,
		Kind:  kinds.Kind(label),
		Cost:  abilityCost(text, label),
	}
	report.Abilities = append(report.Abilities, a)
	report.Fragments = append(report.Fragments, fmt.Sprintf("\n--- %s ---\n%s", label, text))
	if sink != nil {
		sink.RecordAbility(a.Title, a.Text, a.Kind, a.Cost, ref)
	}

	r.dismiss(ctx, page)
	return Outcome{Index: i, Label: label, Status: StatusRevealed}
}

// revealDescription clicks the description control and captures the main
// content it renders. Nothing is dismissed afterwards.
func (r *Revealer) revealDescription(ctx context.Context, page automation.Page, i int, c automation.Control, report *Report) Outcome {
	label, reason, err := ready(c)
	if reason != "" {
		return skipped(i, label, reason, err)
	}
	if err := c.Click(); err != nil {
		return skipped(i, label, ReasonClick, err)
	}
	if err := page.Wait(ctx, r.opts.DescriptionSettle); err != nil {
		return skipped(i, label, ReasonCanceled, err)
	}

	doc, err := currentDocument(page)
	if err != nil {
		return skipped(i, label, ReasonMarkup, err)
	}
	main := doc.First("main")
	if !parser.Has(main) {
		return skipped(i, label, ReasonNoContent, errors.New("no main element"))
	}
	report.Fragments = append(report.Fragments, "\n--- Description ---\n"+strings.Join(parser.Lines(main), "\n"))
	return Outcome{Index: i, Label: label, Status: StatusRevealed}
}

// overlay returns the first overlay found by the selector table, or nil.
func (r *Revealer) overlay(page automation.Page) (*goquery.Selection, error) {
	doc, err := currentDocument(page)
	if err != nil {
		return nil, err
	}
	for _, sel := range r.opts.OverlaySelectors {
		if s := doc.First(sel); parser.Has(s) {
			return s, nil
		}
	}
	return nil, nil
}

// dismiss closes an open overlay: Escape first, then the close selectors in
// order while the overlay is still present.
func (r *Revealer) dismiss(ctx context.Context, page automation.Page) {
	if err := page.PressKey(automation.KeyEscape); err != nil {
		r.logger.Debug("escape failed", "error", err)
	}
	if err := page.Wait(ctx, r.opts.DismissSettle); err != nil {
		return
	}

	for _, sel := range r.opts.CloseSelectors {
		if open, err := r.overlay(page); err != nil || open == nil {
			return
		}
		controls, err := page.Controls(sel)
		if err != nil || len(controls) == 0 {
			continue
		}
		if err := controls[0].Click(); err != nil {
			r.logger.Debug("close control failed", "selector", sel, "error", err)
			continue
		}
		if err := page.Wait(ctx, r.opts.DismissSettle); err != nil {
			return
		}
	}
	if open, err := r.overlay(page); err == nil && open != nil {
		r.logger.Warn("overlay still open after dismiss")
	}
}

func (r *Revealer) record(pageURL string, report *Report, o Outcome) {
	report.Outcomes = append(report.Outcomes, o)
	r.metrics.Control(string(o.Status), o.Reason)
	if o.Status == StatusSkipped {
		r.logger.Debug("control skipped",
			"url", pageURL,
			"index", o.Index,
			"label", o.Label,
			"reason", o.Reason,
			"error", o.Err,
		)
	}
}

// ready checks that a control can be clicked and returns its label. A
// non-empty reason means the control must be skipped.
func ready(c automation.Control) (label, reason string, err error) {
	visible, err := c.Visible()
	if err != nil {
		return "", ReasonStale, err
	}
	if !visible {
		return "", ReasonHidden, types.ErrControlHidden
	}
	enabled, err := c.Enabled()
	if err != nil {
		return "", ReasonStale, err
	}
	if !enabled {
		return "", ReasonDisabled, types.ErrControlDisabled
	}
	label, err = c.Label()
	if err != nil {
		return "", ReasonStale, err
	}
	label = normalizeLabel(label)
	if label == "" {
		return "", ReasonEmptyLabel, types.ErrEmptyLabel
	}
	return label, "", nil
}

func skipped(i int, label, reason string, err error) Outcome {
	return Outcome{Index: i, Label: label, Status: StatusSkipped, Reason: reason, Err: &types.ControlError{Label: label, Index: i, Err: err}}
}

func currentDocument(page automation.Page) (*parser.Document, error) {
	markup, err := page.Markup()
	if err != nil {
		return nil, err
	}
	return parser.Parse(markup)
}

// normalizeLabel collapses whitespace runs, including line breaks from block
// children, to single spaces.
func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(label), " ")
}

func isDescription(label string) bool {
	return strings.Contains(strings.ToLower(label), "description")
}

// abilityCost reads "Cost: ..." from the overlay text, falling back to a
// parenthesised cost suffix in the label such as "(2AP)".
func abilityCost(text, label string) string {
	if c := strings.TrimSpace(parser.Submatch(costPattern, text)); c != "" {
		return c
	}
	return parser.Submatch(labelCostPattern, label)
}
