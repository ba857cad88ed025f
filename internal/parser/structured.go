package parser

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// OpenGraph extracts og:* meta properties (title, image, description, ...).
func (d *Document) OpenGraph() map[string]string {
	data := make(map[string]string)
	d.doc.Find(`meta[property^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		content, _ := s.Attr("content")
		if prop != "" && content != "" {
			data[strings.TrimPrefix(prop, "og:")] = content
		}
	})
	return data
}

// PageTitle returns the text of the <title> element.
func (d *Document) PageTitle() string {
	return Text(d.doc.Find("head title").First())
}
