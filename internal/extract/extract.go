// Package extract turns rendered page markup into structured records, one
// strategy per content category.
package extract

import (
	"log/slog"
	"net/url"
	"strings"

	"github.com/IshaanNene/hallcrawl/internal/parser"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Extractor runs the category strategies. It is stateless and safe for concurrent use.
type Extractor struct {
	origin *url.URL
	logger *slog.Logger
}

// New creates an Extractor that resolves relative references against origin.
func New(origin *url.URL, logger *slog.Logger) *Extractor {
	return &Extractor{
		origin: origin,
		logger: logger.With("component", "extractor"),
	}
}

// Page extracts the page record for a URL of the given category, plus any leaf
// records scanned out of the page. Missing structure degrades to empty fields.
func (e *Extractor) Page(cat types.Category, pageURL string, doc *parser.Document) (*types.PageRecord, []*types.LeafRecord) {
	rec := e.Common(pageURL, doc)

	var leaves []*types.LeafRecord
	switch cat {
	case types.CategoryHero:
		rec.Category = "hero"
		rec.Hero = e.hero(doc)
	case types.CategoryMonster:
		rec.Category = "monster"
		rec.Creature = e.creature(doc)
	case types.CategorySummon:
		rec.Category = "summon"
		rec.Creature = e.creature(doc)
	case types.CategoryDeity:
		rec.Category = "tribe"
		if strings.Contains(pageURL, "/gods/") {
			rec.Category = "god"
		}
		rec.Deity = e.deity(doc)
	case types.CategoryArtifacts:
		rec.Category = "artefacts_page"
	case types.CategoryDefinitions:
		rec.Category = "game_definitions_page"
		leaves = e.definitions(pageURL, doc)
	case types.CategoryConditions:
		rec.Category = "conditions_page"
		leaves = e.conditions(pageURL, doc)
	case types.CategoryFAQs:
		rec.Category = "faqs_page"
		leaves = e.faqs(pageURL, doc)
	case types.CategoryErrata:
		rec.Category = "errata_page"
		leaves = e.errata(pageURL, doc)
	case types.CategoryUnknown:
		rec.Category = "unknown"
	}

	e.logger.Debug("page extracted",
		"url", pageURL,
		"category", rec.Category,
		"title", rec.Title,
		"leaves", len(leaves),
	)
	return rec, leaves
}

// Common extracts the fields shared by every page: title, image and body text.
func (e *Extractor) Common(pageURL string, doc *parser.Document) *types.PageRecord {
	og := doc.OpenGraph()

	title := parser.Text(doc.First("h1"))
	if title == "" {
		title = doc.PageTitle()
	}
	if title == "" {
		title = og["title"]
	}

	img := ""
	if src, ok := doc.First("main img").Attr("src"); ok && src != "" {
		img = parser.Absolute(e.origin, src)
	} else if og["image"] != "" {
		img = parser.Absolute(e.origin, og["image"])
	}

	return &types.PageRecord{
		URL:      pageURL,
		Title:    title,
		ImageURL: img,
		Text:     MainText(doc),
	}
}

// MainText returns the text of <main> with script and style removed, one
// stripped line per paragraph separated by blank lines.
func MainText(doc *parser.Document) string {
	main := doc.First("main")
	if !parser.Has(main) {
		return ""
	}
	return strings.Join(parser.Lines(main), "\n\n")
}
