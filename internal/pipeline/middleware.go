package pipeline

import (
	"fmt"
	"regexp"

	"github.com/IshaanNene/hallcrawl/internal/types"
)

// --- Text Middleware ---

// TextNormalizeMiddleware strips trailing spaces from every text line and
// collapses runs of blank lines. The "\n--- label ---" fragment separators
// keep their single leading blank line.
type TextNormalizeMiddleware struct {
	trailingRe *regexp.Regexp
	blankRe    *regexp.Regexp
}

func NewTextNormalizeMiddleware() *TextNormalizeMiddleware {
	return &TextNormalizeMiddleware{
		trailingRe: regexp.MustCompile(`[ \t]+\n`),
		blankRe:    regexp.MustCompile(`\n{4,}`),
	}
}

func (m *TextNormalizeMiddleware) Name() string { return "text_normalize" }

func (m *TextNormalizeMiddleware) Process(doc *types.Document) (*types.Document, error) {
	text := m.trailingRe.ReplaceAllString(doc.Text, "\n")
	doc.Text = m.blankRe.ReplaceAllString(text, "\n\n\n")
	return doc, nil
}

// --- Validation Middleware ---

// FieldValidateMiddleware validates field values with regex patterns.
type FieldValidateMiddleware struct {
	validations map[string]*regexp.Regexp // field -> validation pattern
	dropInvalid bool
}

func NewFieldValidateMiddleware(patterns map[string]string, dropInvalid bool) (*FieldValidateMiddleware, error) {
	compiled := make(map[string]*regexp.Regexp, len(patterns))
	for field, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid validation regex for %q: %w", field, err)
		}
		compiled[field] = re
	}
	return &FieldValidateMiddleware{
		validations: compiled,
		dropInvalid: dropInvalid,
	}, nil
}

// MustFieldValidateMiddleware is NewFieldValidateMiddleware for constant patterns.
func MustFieldValidateMiddleware(patterns map[string]string, dropInvalid bool) *FieldValidateMiddleware {
	m, err := NewFieldValidateMiddleware(patterns, dropInvalid)
	if err != nil {
		panic(err)
	}
	return m
}

func (m *FieldValidateMiddleware) Name() string { return "field_validate" }

// Process drops a document with an invalid field when dropInvalid is set and
// otherwise removes the invalid extra. Envelope fields are only ever checked
// for dropping.
func (m *FieldValidateMiddleware) Process(doc *types.Document) (*types.Document, error) {
	for field, re := range m.validations {
		s := doc.GetString(field)
		if s == "" || re.MatchString(s) {
			continue
		}
		if m.dropInvalid {
			return nil, nil
		}
		delete(doc.Fields, field)
	}
	return doc, nil
}
