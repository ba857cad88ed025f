// Package catalog maps site URLs to content categories and discovers detail
// pages from listing pages.
package catalog

import (
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/parser"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Root is a category's listing URL.
type Root struct {
	Category types.Category
	URL      string
}

// Catalog holds the fixed category root table of one site.
type Catalog struct {
	origin *url.URL
	roots  []Root
}

// New builds a Catalog from an origin and a slug -> path table.
// Roots are kept in the fixed category order so classification is deterministic.
func New(origin string, categories map[string]string) (*Catalog, error) {
	base, err := url.Parse(strings.TrimRight(origin, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}

	c := &Catalog{origin: base}
	for _, cat := range types.Categories {
		path, ok := categories[cat.String()]
		if !ok {
			continue
		}
		c.roots = append(c.roots, Root{
			Category: cat,
			URL:      base.String() + path,
		})
	}
	if len(c.roots) == 0 {
		return nil, types.ErrNoSeeds
	}
	return c, nil
}

// FromConfig builds the Catalog described by the site section of cfg.
func FromConfig(cfg *config.Config) (*Catalog, error) {
	return New(cfg.Site.Origin, cfg.Site.Categories)
}

// Default returns the Catalog of the Hall of Eternal Champions site.
func Default() *Catalog {
	c, err := New(config.DefaultOrigin, config.DefaultCategories())
	if err != nil {
		panic(err)
	}
	return c
}

// Origin returns the site origin URL.
func (c *Catalog) Origin() *url.URL {
	return c.origin
}

// Seeds returns the root URLs used to start a crawl.
func (c *Catalog) Seeds() []string {
	seeds := make([]string, len(c.roots))
	for i, r := range c.roots {
		seeds[i] = r.URL
	}
	return seeds
}

// RootURL returns the listing URL of cat, or "" if the category is not configured.
func (c *Catalog) RootURL(cat types.Category) string {
	for _, r := range c.roots {
		if r.Category == cat {
			return r.URL
		}
	}
	return ""
}

// Classify maps a URL to its category and reports whether it is a listing page.
// An exact root match is a listing page; otherwise the first root that prefixes
// the URL decides the category. Unmatched URLs are CategoryUnknown.
func (c *Catalog) Classify(rawURL string) (types.Category, bool) {
	for _, r := range c.roots {
		if rawURL == r.URL {
			return r.Category, true
		}
	}
	for _, r := range c.roots {
		if strings.HasPrefix(rawURL, r.URL) {
			return r.Category, false
		}
	}
	return types.CategoryUnknown, false
}

// DiscoverLinks returns the detail URLs under root found in a listing page's
// markup: every anchor resolved against the origin, kept when it starts with
// root and is not root itself. The result is sorted and duplicate-free.
func (c *Catalog) DiscoverLinks(markup, root string) ([]string, error) {
	doc, err := parser.Parse(markup)
	if err != nil {
		return nil, &types.ParseError{URL: root, Selector: "a[href]", Err: err}
	}
	return c.DiscoverLinksIn(doc, root), nil
}

// DiscoverLinksIn is DiscoverLinks over an already parsed document.
func (c *Catalog) DiscoverLinksIn(doc *parser.Document, root string) []string {
	var out []string
	for _, link := range doc.Links(c.origin) {
		if link != root && strings.HasPrefix(link, root) {
			out = append(out, link)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
