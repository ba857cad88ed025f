// Package assemble renders the records of a finished crawl as sink documents.
package assemble

import (
	"iter"
	"log/slog"
	"slices"
	"time"

	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Assembler maps crawl records to documents.
type Assembler struct {
	now    func() time.Time
	logger *slog.Logger
}

// New creates an Assembler stamping documents with the current UTC time.
func New(logger *slog.Logger) *Assembler {
	return &Assembler{
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger.With("component", "assembler"),
	}
}

// WithClock returns a copy of a that stamps documents with now.
func (a *Assembler) WithClock(now func() time.Time) *Assembler {
	c := *a
	c.now = now
	return &c
}

// Documents yields every record of result as a document: pages, abilities,
// artifacts, definitions, conditions, faqs and errata, in that order. The
// error of every pair is nil.
func (a *Assembler) Documents(result *types.Result) iter.Seq2[*types.Document, error] {
	return func(yield func(*types.Document, error) bool) {
		n := 0
		defer func() { a.logger.Debug("documents assembled", "count", n) }()

		for _, p := range result.Pages {
			n++
			if !yield(a.Page(p), nil) {
				return
			}
		}
		for _, ab := range result.Abilities {
			n++
			if !yield(a.Ability(ab), nil) {
				return
			}
		}
		for _, leaves := range [][]*types.LeafRecord{
			result.Artifacts,
			result.Definitions,
			result.Conditions,
			result.FAQs,
			result.Errata,
		} {
			for _, l := range leaves {
				n++
				if !yield(a.Leaf(l), nil) {
					return
				}
			}
		}
	}
}

// Collect drains Documents into a slice.
func (a *Assembler) Collect(result *types.Result) ([]*types.Document, error) {
	var docs []*types.Document
	for doc, err := range a.Documents(result) {
		if err != nil {
			return docs, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

// Page renders a page record.
func (a *Assembler) Page(p *types.PageRecord) *types.Document {
	doc := types.NewDocument(PageID(p.URL), p.URL, a.now())
	doc.Title = p.Title
	doc.Text = p.Text
	doc.Category = p.Category
	if doc.Category == "" {
		doc.Category = "unknown"
	}
	doc.Set("img_url", p.ImageURL)
	for k, v := range p.Attributes() {
		doc.Set(k, v)
	}
	return doc
}

// Ability renders a consolidated ability with every entity that reveals it.
func (a *Assembler) Ability(ab *types.AbilityRecord) *types.Document {
	doc := types.NewDocument(AbilityID(ab.Title), AbilityURL(ab.Title), a.now())
	doc.Title = ab.Title
	doc.Text = ab.Text
	doc.Category = string(ab.Kind)
	doc.Set("cost", ab.Cost)
	entities := slices.Clone(ab.Entities)
	if entities == nil {
		entities = []types.EntityRef{}
	}
	doc.Set("entities", entities)
	return doc
}

// Leaf renders an artifact, definition, condition, faq or erratum.
func (a *Assembler) Leaf(l *types.LeafRecord) *types.Document {
	doc := types.NewDocument(l.ID, l.URL, a.now())
	doc.Title = l.Title
	doc.Text = l.Text
	doc.Category = string(l.Kind)
	for k, v := range l.Attributes() {
		doc.Set(k, v)
	}
	return doc
}
