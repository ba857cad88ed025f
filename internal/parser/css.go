package parser

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Links finds all <a href> links in the document and resolves them against base.
// Anchors, javascript:, mailto:, tel: and data: hrefs are skipped; fragments are
// removed. Duplicates are dropped, keeping document order.
func (d *Document) Links(base *url.URL) []string {
	seen := make(map[string]bool)
	var links []string

	d.doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, exists := sel.Attr("href")
		if !exists || href == "" {
			return
		}

		href = strings.TrimSpace(href)
		if strings.HasPrefix(href, "#") ||
			strings.HasPrefix(href, "javascript:") ||
			strings.HasPrefix(href, "mailto:") ||
			strings.HasPrefix(href, "tel:") ||
			strings.HasPrefix(href, "data:") {
			return
		}

		parsedHref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := base.ResolveReference(parsedHref)

		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}

		resolved.Fragment = ""

		absURL := resolved.String()
		if !seen[absURL] {
			seen[absURL] = true
			links = append(links, absURL)
		}
	})

	return links
}

// Absolute resolves ref against base, returning ref unchanged if it cannot be parsed.
func Absolute(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
