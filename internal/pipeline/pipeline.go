package pipeline

import (
	"log/slog"
	"strings"
	"sync"

	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Middleware processes a document and returns the (possibly modified) document.
// Return nil to drop the document from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a document. Return nil to drop it.
	Process(doc *types.Document) (*types.Document, error)
}

// Pipeline chains middleware processors together.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Default returns the pipeline every crawl's documents pass through before
// storage: trim, normalize text, require an id and url, validate the url and
// drop repeated ids.
func Default(logger *slog.Logger) *Pipeline {
	p := New(logger)
	p.Use(&TrimMiddleware{})
	p.Use(NewTextNormalizeMiddleware())
	p.Use(&RequiredFieldsMiddleware{Fields: []string{"_id", "url"}})
	p.Use(MustFieldValidateMiddleware(map[string]string{"url": `^(https?://|#ability-)`}, true))
	p.Use(NewDedupMiddleware("_id"))
	return p
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the document through all middleware in order.
func (p *Pipeline) Process(doc *types.Document) (*types.Document, error) {
	current := doc

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, &types.PipelineError{
				Stage: mw.Name(),
				DocID: current.ID,
				Err:   err,
			}
		}
		if result == nil {
			p.logger.Debug("document dropped", "stage", mw.Name(), "url", doc.URL)
			return nil, nil
		}
		current = result
	}

	return current, nil
}

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int {
	return len(p.middlewares)
}

// --- Built-in Middleware ---

// RequiredFieldsMiddleware drops documents missing required fields. Envelope
// fields are addressed by their sink names (_id, url, title, text, category).
type RequiredFieldsMiddleware struct {
	Fields []string
}

func (m *RequiredFieldsMiddleware) Name() string { return "required_fields" }

func (m *RequiredFieldsMiddleware) Process(doc *types.Document) (*types.Document, error) {
	for _, field := range m.Fields {
		if doc.GetString(field) != "" {
			continue
		}
		if val, ok := doc.Get(field); !ok || val == nil {
			return nil, nil
		}
	}
	return doc, nil
}

// DedupMiddleware drops documents whose key was already seen.
type DedupMiddleware struct {
	mu   sync.Mutex
	seen map[string]struct{}
	key  string // Field to use as dedup key
}

func NewDedupMiddleware(key string) *DedupMiddleware {
	return &DedupMiddleware{
		seen: make(map[string]struct{}),
		key:  key,
	}
}

func (m *DedupMiddleware) Name() string { return "dedup" }

func (m *DedupMiddleware) Process(doc *types.Document) (*types.Document, error) {
	val := doc.GetString(m.key)
	if val == "" {
		val = doc.URL // Fallback to URL
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.seen[val]; exists {
		return nil, nil
	}
	m.seen[val] = struct{}{}
	return doc, nil
}

// TrimMiddleware trims whitespace from the title, the text and every string extra.
type TrimMiddleware struct{}

func (m *TrimMiddleware) Name() string { return "trim" }

func (m *TrimMiddleware) Process(doc *types.Document) (*types.Document, error) {
	doc.Title = strings.TrimSpace(doc.Title)
	doc.Text = strings.TrimSpace(doc.Text)
	for _, key := range doc.Keys() {
		if s := doc.GetString(key); s != "" {
			doc.Set(key, strings.TrimSpace(s))
		}
	}
	return doc, nil
}
