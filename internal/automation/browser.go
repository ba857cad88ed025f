package automation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/proto"
)

const stableWindow = 300 * time.Millisecond

// RodPage implements Page on a Rod page.
type RodPage struct {
	page    *rod.Page
	timeout time.Duration
	logger  *slog.Logger
}

// NewRodPage wraps a Rod page. timeout bounds navigation and idle waits.
func NewRodPage(page *rod.Page, timeout time.Duration, logger *slog.Logger) *RodPage {
	return &RodPage{
		page:    page,
		timeout: timeout,
		logger:  logger.With("component", "rod_page"),
	}
}

// Navigate loads url and waits for the load event.
func (p *RodPage) Navigate(ctx context.Context, url string) error {
	page := p.page.Context(ctx).Timeout(p.timeout)
	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("wait load %s: %w", url, err)
	}
	return nil
}

// WaitIdle waits until the DOM has been stable for a short window.
func (p *RodPage) WaitIdle(ctx context.Context) error {
	return p.page.Context(ctx).Timeout(p.timeout).WaitStable(stableWindow)
}

// Wait pauses for d.
func (p *RodPage) Wait(ctx context.Context, d time.Duration) error {
	return Sleep(ctx, d)
}

// Markup returns the page's current outer HTML.
func (p *RodPage) Markup() (string, error) {
	return p.page.HTML()
}

// Controls returns handles for every element matching selector.
func (p *RodPage) Controls(selector string) ([]Control, error) {
	els, err := p.page.Elements(selector)
	if err != nil {
		return nil, fmt.Errorf("controls %s: %w", selector, err)
	}
	out := make([]Control, len(els))
	for i, el := range els {
		out[i] = &rodControl{el: el}
	}
	return out, nil
}

// PressKey presses and releases key.
func (p *RodPage) PressKey(key Key) error {
	var k input.Key
	switch key {
	case KeyEscape:
		k = input.Escape
	case KeyEnter:
		k = input.Enter
	default:
		return fmt.Errorf("unsupported key %q", key)
	}
	return p.page.Keyboard.Press(k)
}

// Close closes the tab.
func (p *RodPage) Close() error {
	return p.page.Close()
}

type rodControl struct {
	el *rod.Element
}

func (c *rodControl) Visible() (bool, error) {
	return c.el.Visible()
}

func (c *rodControl) Enabled() (bool, error) {
	disabled, err := c.el.Attribute("disabled")
	if err != nil {
		return false, err
	}
	return disabled == nil, nil
}

func (c *rodControl) Label() (string, error) {
	text, err := c.el.Text()
	if err != nil {
		return "", err
	}
	return strings.Join(strings.Fields(text), " "), nil
}

func (c *rodControl) Click() error {
	return c.el.Click(proto.InputMouseButtonLeft, 1)
}
