package extract

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/hallcrawl/internal/assemble"
	"github.com/IshaanNene/hallcrawl/internal/parser"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

var conditionSkip = []string{"Conditions", "General Rules"}

// leafSet collects leaves for one page, dropping repeats of the same id.
type leafSet struct {
	seen   map[string]bool
	leaves []*types.LeafRecord
}

func (s *leafSet) add(l *types.LeafRecord) {
	if s.seen == nil {
		s.seen = make(map[string]bool)
	}
	if s.seen[l.ID] {
		return
	}
	s.seen[l.ID] = true
	s.leaves = append(s.leaves, l)
}

func namedLeaf(kind types.LeafKind, pageURL, name string) *types.LeafRecord {
	return &types.LeafRecord{
		Kind:       kind,
		ID:         assemble.ItemID(pageURL, name),
		URL:        pageURL + "#" + assemble.Slug(name),
		Title:      name,
		SourcePage: pageURL,
	}
}

func (e *Extractor) definitions(pageURL string, doc *parser.Document) []*types.LeafRecord {
	var set leafSet
	doc.Find(`[class*="card"], [class*="definition"]`).Each(func(_ int, card *goquery.Selection) {
		name := parser.Text(card.Find("h2, h3, h4, strong, b").First())
		if name == "" {
			return
		}
		l := namedLeaf(types.LeafDefinition, pageURL, name)
		l.Text = parser.JoinText(card, " ")
		set.add(l)
	})
	return set.leaves
}

func (e *Extractor) conditions(pageURL string, doc *parser.Document) []*types.LeafRecord {
	var set leafSet
	doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
		name := parser.Text(h)
		if name == "" || slices.Contains(conditionSkip, name) {
			return
		}
		l := namedLeaf(types.LeafCondition, pageURL, name)
		l.Text = sectionText(h)
		set.add(l)
	})
	return set.leaves
}

func (e *Extractor) faqs(pageURL string, doc *parser.Document) []*types.LeafRecord {
	var set leafSet
	doc.Find(`[class*="faq"], [class*="question"]`).Each(func(i int, elem *goquery.Selection) {
		question := parser.Text(elem)
		if question == "" {
			return
		}
		answer := parser.Text(elem.Next())
		set.add(&types.LeafRecord{
			Kind:       types.LeafFAQ,
			ID:         assemble.OrdinalID(pageURL, i),
			URL:        pageURL + "#faq-" + strconv.Itoa(i),
			Title:      question,
			Text:       question + "\n\n" + answer,
			Question:   question,
			Answer:     answer,
			SourcePage: pageURL,
		})
	})
	return set.leaves
}

func (e *Extractor) errata(pageURL string, doc *parser.Document) []*types.LeafRecord {
	var set leafSet
	doc.Find("h2, h3").Each(func(_ int, h *goquery.Selection) {
		heading := parser.Text(h)
		if !strings.HasPrefix(heading, "Errata:") {
			return
		}
		name := strings.TrimSpace(strings.TrimPrefix(heading, "Errata:"))
		l := namedLeaf(types.LeafErratum, pageURL, name)
		l.Title = "Errata: " + name
		l.ItemName = name
		l.Correction = sectionText(h)
		l.Text = l.Correction
		set.add(l)
	})
	return set.leaves
}

// sectionText joins the text of the siblings after h up to the next h2/h3.
func sectionText(h *goquery.Selection) string {
	var parts []string
	parser.SiblingsUntil(h, "h2, h3").Each(func(_ int, s *goquery.Selection) {
		if text := parser.Text(s); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// Artifact parses an opened artifact overlay. index is the card's position on
// the listing page and names the artifact when the overlay has no heading.
func (e *Extractor) Artifact(listingURL string, index int, overlay *goquery.Selection) *types.LeafRecord {
	name := parser.Text(overlay.Find("h1, h2, h3").First())
	if name == "" {
		name = fmt.Sprintf("Artifact %d", index+1)
	}

	lines := parser.Lines(overlay)
	l := namedLeaf(types.LeafArtifact, listingURL, name)
	l.Text = strings.Join(lines, "\n")

	var description []string
	foundMeta := false
	for _, line := range lines {
		if !foundMeta && strings.Contains(line, "|") && strings.Contains(line, "Type:") {
			foundMeta = true
			for _, part := range strings.Split(line, "|") {
				part = strings.TrimSpace(part)
				switch {
				case strings.HasPrefix(part, "Type:"):
					l.ArtifactType = strings.TrimSpace(strings.TrimPrefix(part, "Type:"))
				case strings.HasPrefix(part, "Cost:"):
					l.Cost = strings.TrimSpace(strings.TrimPrefix(part, "Cost:"))
				case strings.HasPrefix(part, "Category:"):
					l.ArtifactCategory = strings.TrimSpace(strings.TrimPrefix(part, "Category:"))
				}
			}
			continue
		}
		if foundMeta && line != "Close" && line != name {
			description = append(description, line)
		}
	}
	l.Description = strings.Join(description, " ")
	return l
}
