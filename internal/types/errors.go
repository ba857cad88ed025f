package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrNoSeeds          = errors.New("no seed URLs configured")
	ErrNoOverlay        = errors.New("no overlay appeared after click")
	ErrControlHidden    = errors.New("control is not visible")
	ErrControlDisabled  = errors.New("control is not enabled")
	ErrEmptyLabel       = errors.New("control has an empty label")
	ErrBudgetExhausted  = errors.New("visit budget exhausted")
	ErrDuplicate        = errors.New("duplicate URL")
	ErrInvalidURL       = errors.New("invalid URL")
	ErrCrawlStopped     = errors.New("crawl has been stopped")
	ErrEmptyMarkup      = errors.New("empty page markup")
	ErrMissingField     = errors.New("required field missing")
	ErrUnsupportedStore = errors.New("unsupported storage type")
)

// VisitError wraps page-level failures: navigation, markup reads, panics in a visit.
type VisitError struct {
	URL   string
	Stage string
	Err   error
}

func (e *VisitError) Error() string {
	return fmt.Sprintf("visit error for %s at %s: %v", e.URL, e.Stage, e.Err)
}

func (e *VisitError) Unwrap() error { return e.Err }

// ParseError wraps errors that occur during parsing.
type ParseError struct {
	URL      string
	Selector string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error for %s (selector=%q): %v", e.URL, e.Selector, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ControlError records why a single reveal control was skipped.
type ControlError struct {
	Label string
	Index int
	Err   error
}

func (e *ControlError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("control %d (%q): %v", e.Index, e.Label, e.Err)
	}
	return fmt.Sprintf("control %d: %v", e.Index, e.Err)
}

func (e *ControlError) Unwrap() error { return e.Err }

// StorageError wraps errors that occur during storage/export.
type StorageError struct {
	Backend string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s): %v", e.Backend, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// PipelineError wraps errors that occur in the document pipeline.
type PipelineError struct {
	Stage string
	DocID string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline error at stage %q (doc %s): %v", e.Stage, e.DocID, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }
