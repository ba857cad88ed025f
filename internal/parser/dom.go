package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// FindHeadingByKeyword returns the first element matching tags whose text
// contains keyword (case-sensitive). The result is empty when nothing matches.
func (d *Document) FindHeadingByKeyword(tags, keyword string) *goquery.Selection {
	return d.doc.Find(tags).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return strings.Contains(Text(s), keyword)
	}).First()
}

// ContainerOf returns the block that owns a heading: its parent element.
func ContainerOf(heading *goquery.Selection) *goquery.Selection {
	return heading.Parent()
}

// FindTableUnder returns the first table inside the heading's container.
func FindTableUnder(heading *goquery.Selection) *goquery.Selection {
	if !Has(heading) {
		return heading
	}
	return ContainerOf(heading).Find("table").First()
}

// FindGridCells returns the direct child divs of the first grid container
// inside the heading's container.
func FindGridCells(heading *goquery.Selection) *goquery.Selection {
	if !Has(heading) {
		return heading
	}
	grid := ContainerOf(heading).Find("div").FilterFunction(func(_ int, s *goquery.Selection) bool {
		return ClassContains(s, "grid")
	}).First()
	return grid.ChildrenFiltered("div")
}

// FindByClass returns descendants of sel matching tag whose class contains substr.
func FindByClass(sel *goquery.Selection, tag, substr string) *goquery.Selection {
	return sel.Find(tag).FilterFunction(func(_ int, s *goquery.Selection) bool {
		return ClassContains(s, substr)
	})
}

// SiblingsUntil returns the element siblings following sel, stopping before the
// first sibling matching stop.
func SiblingsUntil(sel *goquery.Selection, stop string) *goquery.Selection {
	return sel.NextUntil(stop)
}

// Table is a header row plus data rows read from a table element.
type Table struct {
	Headers []string
	Rows    []*goquery.Selection
}

// ReadTable reads the first header row of thead and every tbody row.
// A table without a header row yields an empty Table.
func ReadTable(table *goquery.Selection) Table {
	var t Table
	if !Has(table) {
		return t
	}
	header := table.Find("thead tr").First()
	if !Has(header) {
		return t
	}
	header.Find("th").Each(func(_ int, th *goquery.Selection) {
		t.Headers = append(t.Headers, Text(th))
	})
	table.Find("tbody tr").Each(func(_ int, tr *goquery.Selection) {
		t.Rows = append(t.Rows, tr)
	})
	return t
}

// Cells returns the text of each td in a row.
func Cells(row *goquery.Selection) []string {
	var cells []string
	row.Find("td").Each(func(_ int, td *goquery.Selection) {
		cells = append(cells, Text(td))
	})
	return cells
}

// FirstRow maps header names to the first data row's cell values.
// A cell holding only "-" is omitted; a cell rendered as an icon is recorded
// as iconValue so its column is not lost.
func (t Table) FirstRow(iconValue string) map[string]string {
	out := make(map[string]string)
	if len(t.Rows) == 0 {
		return out
	}
	t.Rows[0].Find("td").Each(func(i int, td *goquery.Selection) {
		if i >= len(t.Headers) {
			return
		}
		name := t.Headers[i]
		text := Text(td)
		hasIcon := Has(td.Find("svg"))
		switch {
		case hasIcon:
			out[name] = iconValue
		case text != "" && text != "-":
			out[name] = text
		}
	})
	return out
}
