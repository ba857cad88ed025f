package reveal

import (
	"context"
	"slices"

	"github.com/IshaanNene/hallcrawl/internal/automation"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

type card struct {
	index   int
	label   string
	control automation.Control
}

// Artifacts opens every artifact card on the listing page in document order
// and parses the overlay each one shows. Filter and chrome buttons named in
// the skip list are left alone.
func (r *Revealer) Artifacts(ctx context.Context, page automation.Page, listingURL string) ([]*types.LeafRecord, *Report, error) {
	controls, err := page.Controls(r.opts.ControlSelector)
	if err != nil {
		return nil, nil, &types.VisitError{URL: listingURL, Stage: "controls", Err: err}
	}

	report := &Report{}
	var cards []card
	for i, c := range controls {
		label, reason, err := ready(c)
		if reason != "" {
			r.record(listingURL, report, skipped(i, label, reason, err))
			continue
		}
		if slices.Contains(r.opts.ArtifactSkipLabels, label) {
			r.record(listingURL, report, Outcome{Index: i, Label: label, Status: StatusSkipped, Reason: ReasonFiltered})
			continue
		}
		cards = append(cards, card{index: i, label: label, control: c})
	}
	r.logger.Info("artifact cards found", "url", listingURL, "cards", len(cards))

	var leaves []*types.LeafRecord
	seen := make(map[string]bool)
	for n, c := range cards {
		if err := ctx.Err(); err != nil {
			r.record(listingURL, report, skipped(c.index, c.label, ReasonCanceled, err))
			continue
		}
		if err := c.control.Click(); err != nil {
			r.record(listingURL, report, skipped(c.index, c.label, ReasonClick, err))
			r.dismiss(ctx, page)
			continue
		}
		if err := page.Wait(ctx, r.opts.Settle); err != nil {
			r.record(listingURL, report, skipped(c.index, c.label, ReasonCanceled, err))
			continue
		}

		overlay, err := r.overlay(page)
		if err != nil {
			r.record(listingURL, report, skipped(c.index, c.label, ReasonMarkup, err))
			r.dismiss(ctx, page)
			continue
		}
		if overlay == nil {
			r.logger.Warn("no overlay for artifact", "url", listingURL, "artifact", n+1, "label", c.label)
			r.record(listingURL, report, skipped(c.index, c.label, ReasonNoOverlay, types.ErrNoOverlay))
			r.dismiss(ctx, page)
			continue
		}

		leaf := r.extractor.Artifact(listingURL, n, overlay)
		if !seen[leaf.ID] {
			seen[leaf.ID] = true
			leaves = append(leaves, leaf)
		}
		r.record(listingURL, report, Outcome{Index: c.index, Label: c.label, Status: StatusRevealed})
		r.dismiss(ctx, page)
	}

	r.logger.Info("artifacts extracted", "url", listingURL, "artifacts", len(leaves))
	return leaves, report, nil
}
