package extract

import (
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/hallcrawl/internal/parser"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

var (
	difficultyLevels = []string{"Easy", "Medium", "Hard"}

	// Section headings that can follow a creature's h1 instead of its type label.
	creatureSections = []string{"Attributes", "Weapons", "Health", "Innate Abilities", "Combat Manoeuvres"}

	badgeStoplist = []string{"Description", "Close", "Free"}
)

const maxTraits = 5

func (e *Extractor) hero(doc *parser.Document) *types.HeroFields {
	return &types.HeroFields{
		Difficulty: difficulty(doc),
		Classes:    classes(doc),
		Attributes: attributeTable(doc, "-"),
		Weapons:    weapons(doc),
		Health:     healthGrid(doc),
		Gods:       linkedNames(doc, `a[href*="/gods/"]`),
	}
}

func (e *Extractor) creature(doc *parser.Document) *types.CreatureFields {
	c := &types.CreatureFields{
		CreatureType: creatureType(doc),
		Attributes:   attributeTable(doc, "0"),
		Weapons:      weapons(doc),
		Bounty:       "",
	}

	heading := doc.Find("h2").FilterFunction(func(_ int, s *goquery.Selection) bool {
		text := parser.Text(s)
		return strings.Contains(text, "Health") || strings.Contains(text, "Bounty")
	}).First()
	if !parser.Has(heading) {
		return c
	}

	kv := parser.KeyValues(parser.ContainerOf(heading), "Health", "Bounty", "Tier")
	if n, ok := parser.SubmatchInt(`^(\d+)`, kv["Health"]); ok {
		c.Health = n
	}
	if v, ok := kv["Bounty"]; ok {
		c.Bounty = parser.IntOrString(v)
	}
	if n, ok := parser.SubmatchInt(`^(\d+)`, kv["Tier"]); ok {
		c.Tier = n
	}
	return c
}

func (e *Extractor) deity(doc *parser.Document) *types.DeityFields {
	d := &types.DeityFields{
		Traits:    traits(doc),
		Champions: []string{},
		Avatars:   []string{},
	}

	doc.Find("h3").Each(func(_ int, h3 *goquery.Selection) {
		heading := strings.ToLower(parser.Text(h3))
		var list *[]string
		switch {
		case strings.Contains(heading, "avatar"):
			list = &d.Avatars
		case strings.Contains(heading, "champion"):
			list = &d.Champions
		default:
			return
		}
		block := h3.Next()
		block.Find(`a[href*="/heroes/"]`).Each(func(_ int, a *goquery.Selection) {
			name := parser.Text(a.Find("h3").First())
			if name != "" && !slices.Contains(*list, name) {
				*list = append(*list, name)
			}
		})
	})
	return d
}

// difficulty reads Easy/Medium/Hard from the siblings of the "Difficulty"
// label, falling back to the label's own element text.
func difficulty(doc *parser.Document) string {
	label := doc.FindTextNode("Difficulty")
	if !parser.Has(label) {
		return ""
	}
	found := ""
	label.NextAll().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := parser.Text(s)
		if slices.Contains(difficultyLevels, text) {
			found = text
			return false
		}
		return true
	})
	if found != "" {
		return found
	}
	own := parser.Text(label)
	for _, level := range difficultyLevels {
		if strings.Contains(own, level) {
			return level
		}
	}
	return ""
}

func classes(doc *parser.Document) []string {
	out := []string{}
	heading := doc.FindHeadingByKeyword("h2", "Classes")
	if !parser.Has(heading) {
		return out
	}
	parser.FindByClass(parser.ContainerOf(heading), "div", "border-transparent").Each(func(_ int, s *goquery.Selection) {
		if name := parser.Text(s); name != "" && name != "Classes" {
			out = append(out, name)
		}
	})
	return out
}

func attributeTable(doc *parser.Document, iconValue string) map[string]string {
	heading := doc.FindHeadingByKeyword("h2", "Attributes")
	return parser.ReadTable(parser.FindTableUnder(heading)).FirstRow(iconValue)
}

// weapons reads every weapon table row with at least seven cells; shorter rows are skipped.
func weapons(doc *parser.Document) []types.Weapon {
	out := []types.Weapon{}
	heading := doc.FindHeadingByKeyword("h2", "Weapons")
	for _, row := range parser.ReadTable(parser.FindTableUnder(heading)).Rows {
		cells := parser.Cells(row)
		if len(cells) < 7 {
			continue
		}
		out = append(out, types.Weapon{
			Name:   cells[0],
			Type:   cells[1],
			Cost:   cells[2],
			Reach:  cells[3],
			Glance: cells[4],
			Solid:  cells[5],
			Crit:   cells[6],
		})
	}
	return out
}

// healthGrid pairs each "Level N" grid label with its bold value. Cells whose
// label does not match or whose value is not an integer are ignored.
func healthGrid(doc *parser.Document) map[string]int {
	out := make(map[string]int)
	cells := parser.FindGridCells(doc.FindHeadingByKeyword("h2", "Health"))
	cells.Each(func(_ int, cell *goquery.Selection) {
		label := parser.FindByClass(cell, "div", "text-muted-foreground").First()
		value := parser.FindByClass(cell, "div", "font-bold").First()
		if !parser.Has(label) || !parser.Has(value) {
			return
		}
		level, ok := parser.SubmatchInt(`Level\s+(\d+)`, parser.Text(label))
		if !ok {
			return
		}
		n, err := strconv.Atoi(parser.Text(value))
		if err != nil {
			return
		}
		out["level_"+strconv.Itoa(level)] = n
	})
	return out
}

func creatureType(doc *parser.Document) string {
	next := doc.First("h1").Next()
	text := parser.Text(next)
	if text == "" || slices.Contains(creatureSections, text) {
		return ""
	}
	return text
}

// traits accepts short badge texts: at most two words, no digits, not in the
// stoplist, no duplicates, capped at five.
func traits(doc *parser.Document) []string {
	out := []string{}
	doc.Find("div.bg-secondary").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		text := parser.Text(s)
		if text == "" || len(strings.Fields(text)) > 2 {
			return true
		}
		if slices.Contains(out, text) || slices.Contains(badgeStoplist, text) || strings.IndexFunc(text, unicode.IsDigit) >= 0 {
			return true
		}
		out = append(out, text)
		return len(out) < maxTraits
	})
	return out
}

func linkedNames(doc *parser.Document, selector string) []string {
	out := []string{}
	doc.Find(selector).Each(func(_ int, a *goquery.Selection) {
		if name := parser.Text(a); name != "" && !slices.Contains(out, name) {
			out = append(out, name)
		}
	})
	return out
}
