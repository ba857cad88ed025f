package parser

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Document is parsed page markup with the structural helpers used by every
// extraction strategy.
type Document struct {
	doc *goquery.Document
}

// Parse parses rendered page markup.
func Parse(markup string) (*Document, error) {
	if strings.TrimSpace(markup) == "" {
		return nil, types.ErrEmptyMarkup
	}
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}
	return &Document{doc: goquery.NewDocumentFromNode(root)}, nil
}

// MustParse parses markup and panics on failure. Intended for tests and constants.
func MustParse(markup string) *Document {
	d, err := Parse(markup)
	if err != nil {
		panic(err)
	}
	return d
}

// Find runs a CSS selector over the whole document.
func (d *Document) Find(selector string) *goquery.Selection {
	return d.doc.Find(selector)
}

// First returns the first match of selector, which may be empty.
func (d *Document) First(selector string) *goquery.Selection {
	return d.doc.Find(selector).First()
}

// Text returns the stripped text of a selection with inner whitespace collapsed.
func Text(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return strings.Join(strings.Fields(sel.Text()), " ")
}

// Has reports whether the selection matched anything.
func Has(sel *goquery.Selection) bool {
	return sel != nil && sel.Length() > 0
}

// ClassContains reports whether the element's class attribute contains substr.
func ClassContains(sel *goquery.Selection, substr string) bool {
	class, ok := sel.Attr("class")
	return ok && strings.Contains(class, substr)
}
