package parser

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"
)

// TextNodes returns the stripped, non-empty text nodes under sel in document
// order. Script and style content is skipped.
func TextNodes(sel *goquery.Selection) []string {
	if !Has(sel) {
		return nil
	}
	var out []string
	for _, n := range sel.Nodes {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				out = append(out, s)
			}
			continue
		}
		for _, t := range htmlquery.Find(n, ".//text()") {
			if skipText(t) {
				continue
			}
			if s := strings.TrimSpace(t.Data); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Lines splits the text nodes under sel into stripped, non-empty lines.
func Lines(sel *goquery.Selection) []string {
	var out []string
	for _, node := range TextNodes(sel) {
		for _, line := range strings.Split(node, "\n") {
			if s := strings.TrimSpace(line); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// JoinText joins the text nodes under sel with sep.
func JoinText(sel *goquery.Selection, sep string) string {
	return strings.Join(TextNodes(sel), sep)
}

// FindTextNode returns the parent element of the first text node containing
// substr. The result is empty when no text node matches.
func (d *Document) FindTextNode(substr string) *goquery.Selection {
	for _, n := range d.doc.Selection.Nodes {
		for _, t := range htmlquery.Find(n, "//text()") {
			if skipText(t) || t.Parent == nil {
				continue
			}
			if strings.Contains(t.Data, substr) {
				return d.doc.FindNodes(t.Parent)
			}
		}
	}
	return d.doc.FindNodes()
}

// KeyValues scans the text nodes under sel for "Key: value" pairs and returns
// the first whitespace-delimited token after each requested key. Labels and
// values split across elements ("Tier:" then "2") are matched as one line.
func KeyValues(sel *goquery.Selection, keys ...string) map[string]string {
	out := make(map[string]string, len(keys))
	text := JoinText(sel, " ")
	for _, k := range keys {
		re := MustPattern(regexp.QuoteMeta(k) + `:\s*([^\s|]+)`)
		if m := re.FindStringSubmatch(text); m != nil {
			out[k] = m[1]
		}
	}
	return out
}

func skipText(t *html.Node) bool {
	if t.Parent == nil {
		return false
	}
	switch t.Parent.Data {
	case "script", "style", "noscript":
		return true
	}
	return false
}
