// Package automation defines the browser capability the crawler drives: a page
// that can navigate, expose its rendered markup and hand out clickable controls.
package automation

import (
	"context"
	"time"
)

// Key is a keyboard key understood by Page.PressKey.
type Key string

const (
	KeyEscape Key = "Escape"
	KeyEnter  Key = "Enter"
)

// Page is one browser tab. A Page is used by a single goroutine at a time.
type Page interface {
	// Navigate loads url and waits for the document to load.
	Navigate(ctx context.Context, url string) error

	// WaitIdle waits until the page stops changing.
	WaitIdle(ctx context.Context) error

	// Wait pauses for d or until ctx is done.
	Wait(ctx context.Context, d time.Duration) error

	// Markup returns the current rendered document.
	Markup() (string, error)

	// Controls returns the elements matching selector in document order.
	Controls(selector string) ([]Control, error)

	// PressKey sends a key press to the focused document.
	PressKey(key Key) error

	Close() error
}

// Control is a clickable element handle. Handles can go stale when the page
// re-renders; every method then returns an error.
type Control interface {
	Visible() (bool, error)
	Enabled() (bool, error)
	Label() (string, error)
	Click() error
}

// PageSource opens new pages.
type PageSource interface {
	NewPage(ctx context.Context) (Page, error)
}

// Sleep waits for d or until ctx is done. Page implementations share it for Wait.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
