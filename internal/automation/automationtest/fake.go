// Package automationtest provides a scripted in-memory Page for tests.
//
// A Site maps URLs to markup. Pages opened from it render controls from that
// markup: clicking a control whose label has a scripted overlay injects the
// overlay before </body>, Escape removes it, and a scripted replacement swaps
// the page's base markup. Control state comes from attributes on the element:
// data-hidden marks it invisible, disabled marks it disabled and data-stale
// makes every call fail as a detached handle would.
package automationtest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/IshaanNene/hallcrawl/internal/automation"
)

// ErrStale is returned by controls marked data-stale.
var ErrStale = errors.New("stale element handle")

// ErrNotFound is returned when navigating to a URL the site does not serve.
var ErrNotFound = errors.New("page not found")

// Site is the scripted content shared by every page opened from it.
type Site struct {
	mu sync.Mutex

	// Pages maps URL to its base markup.
	Pages map[string]string

	// Overlays maps a control label to the overlay markup its click opens.
	Overlays map[string]string

	// Sticky lists overlay labels that survive Escape and need a close control.
	Sticky map[string]bool

	// Replacements maps a control label to the base markup its click renders.
	Replacements map[string]string

	// Panics lists URLs whose navigation panics.
	Panics map[string]bool

	navigations []string
	opened      int
}

// NewSite creates an empty Site.
func NewSite() *Site {
	return &Site{
		Pages:        make(map[string]string),
		Overlays:     make(map[string]string),
		Sticky:       make(map[string]bool),
		Replacements: make(map[string]string),
		Panics:       make(map[string]bool),
	}
}

// NewPage opens a page on the site.
func (s *Site) NewPage(context.Context) (automation.Page, error) {
	s.mu.Lock()
	s.opened++
	s.mu.Unlock()
	return &Page{site: s}, nil
}

// Navigations returns every URL navigated to, in order.
func (s *Site) Navigations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.navigations...)
}

// Opened returns the number of pages opened.
func (s *Site) Opened() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opened
}

func (s *Site) lookup(m map[string]string, key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := m[key]
	return v, ok
}

// Page is a fake browser tab.
type Page struct {
	site *Site

	mu           sync.Mutex
	url          string
	base         string
	overlay      string
	overlayLabel string
	clicks       []string
	keys         []automation.Key
	waited       time.Duration
	closed       bool
}

// NewPage returns a page already showing markup, detached from any site.
func NewPage(markup string) *Page {
	return &Page{site: NewSite(), base: markup}
}

// Site returns the site the page was opened from.
func (p *Page) Site() *Site { return p.site }

func (p *Page) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.site.mu.Lock()
	p.site.navigations = append(p.site.navigations, url)
	panics := p.site.Panics[url]
	markup, ok := p.site.Pages[url]
	p.site.mu.Unlock()

	if panics {
		panic("navigation crashed: " + url)
	}
	if !ok {
		return fmt.Errorf("%s: %w", url, ErrNotFound)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
	p.base = markup
	p.overlay = ""
	p.overlayLabel = ""
	return nil
}

func (p *Page) WaitIdle(ctx context.Context) error {
	return ctx.Err()
}

// Wait records d without sleeping.
func (p *Page) Wait(ctx context.Context, d time.Duration) error {
	p.mu.Lock()
	p.waited += d
	p.mu.Unlock()
	return ctx.Err()
}

func (p *Page) Markup() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.render(), nil
}

func (p *Page) render() string {
	if p.overlay == "" {
		return p.base
	}
	if i := strings.LastIndex(p.base, "</body>"); i >= 0 {
		return p.base[:i] + p.overlay + p.base[i:]
	}
	return p.base + p.overlay
}

func (p *Page) Controls(selector string) ([]automation.Control, error) {
	p.mu.Lock()
	markup := p.render()
	p.mu.Unlock()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	var out []automation.Control
	doc.Find(selector).Each(func(_ int, s *goquery.Selection) {
		_, hidden := s.Attr("data-hidden")
		_, disabled := s.Attr("disabled")
		_, stale := s.Attr("data-stale")
		_, closer := s.Attr("data-close")
		out = append(out, &Control{
			page:     p,
			label:    strings.TrimSpace(s.Text()),
			key:      strings.Join(strings.Fields(s.Text()), " "),
			hidden:   hidden,
			disabled: disabled,
			stale:    stale,
			closer:   closer,
		})
	})
	return out, nil
}

// PressKey records key. Escape closes any overlay that is not sticky.
func (p *Page) PressKey(key automation.Key) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, key)
	if key == automation.KeyEscape && p.overlay != "" {
		p.site.mu.Lock()
		sticky := p.site.Sticky[p.overlayLabel]
		p.site.mu.Unlock()
		if !sticky {
			p.overlay = ""
			p.overlayLabel = ""
		}
	}
	return nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

// URL returns the last navigated URL.
func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// Clicks returns the labels of clicked controls in order.
func (p *Page) Clicks() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.clicks...)
}

// Keys returns the pressed keys in order.
func (p *Page) Keys() []automation.Key {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]automation.Key(nil), p.keys...)
}

// Waited returns the total duration passed to Wait.
func (p *Page) Waited() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.waited
}

// OverlayOpen reports whether an overlay is currently rendered.
func (p *Page) OverlayOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.overlay != ""
}

// Closed reports whether Close was called.
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

func (p *Page) click(c *Control) {
	overlay, hasOverlay := p.site.lookup(p.site.Overlays, c.key)
	replacement, hasReplacement := p.site.lookup(p.site.Replacements, c.key)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicks = append(p.clicks, c.key)
	switch {
	case c.closer:
		p.overlay = ""
		p.overlayLabel = ""
	case hasOverlay:
		p.overlay = overlay
		p.overlayLabel = c.key
	case hasReplacement:
		p.base = replacement
	}
}

// Control is a fake element handle. Like innerText, label keeps the line
// breaks of block children; the site maps and click log use the
// whitespace-collapsed key.
type Control struct {
	page     *Page
	label    string
	key      string
	hidden   bool
	disabled bool
	stale    bool
	closer   bool
}

func (c *Control) Visible() (bool, error) {
	if c.stale {
		return false, ErrStale
	}
	return !c.hidden, nil
}

func (c *Control) Enabled() (bool, error) {
	if c.stale {
		return false, ErrStale
	}
	return !c.disabled, nil
}

func (c *Control) Label() (string, error) {
	if c.stale {
		return "", ErrStale
	}
	return c.label, nil
}

func (c *Control) Click() error {
	if c.stale {
		return ErrStale
	}
	c.page.click(c)
	return nil
}
