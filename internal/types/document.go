package types

import (
	"encoding/json"
	"maps"
	"time"
)

// Document is one search-index record handed to the sink.
type Document struct {
	// ID is the stable content hash identifying the document.
	ID string

	// Timestamp is when the document was assembled.
	Timestamp time.Time

	URL      string
	Title    string
	Text     string
	Category string

	// Fields holds the category-specific extras.
	Fields map[string]any
}

// NewDocument creates a Document with an empty extras map.
func NewDocument(id, url string, ts time.Time) *Document {
	return &Document{
		ID:        id,
		URL:       url,
		Timestamp: ts,
		Fields:    make(map[string]any),
	}
}

// Set sets an extra field value.
func (d *Document) Set(key string, value any) {
	d.Fields[key] = value
}

// Get retrieves an extra field value.
func (d *Document) Get(key string) (any, bool) {
	v, ok := d.Fields[key]
	return v, ok
}

// GetString retrieves an envelope or extra field as a string.
func (d *Document) GetString(key string) string {
	switch key {
	case "_id":
		return d.ID
	case "url":
		return d.URL
	case "title":
		return d.Title
	case "text":
		return d.Text
	case "category":
		return d.Category
	}
	v, ok := d.Fields[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}

// Keys returns all extra field names.
func (d *Document) Keys() []string {
	keys := make([]string, 0, len(d.Fields))
	for k := range d.Fields {
		keys = append(keys, k)
	}
	return keys
}

// ToMap flattens the envelope and extras into the sink's schema.
func (d *Document) ToMap() map[string]any {
	out := make(map[string]any, len(d.Fields)+6)
	maps.Copy(out, d.Fields)
	out["_id"] = d.ID
	out["_timestamp"] = d.Timestamp.UTC().Format(time.RFC3339)
	out["url"] = d.URL
	out["title"] = d.Title
	out["text"] = d.Text
	out["category"] = d.Category
	return out
}

// MarshalJSON serializes the flattened document.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToMap())
}

// ToFlatMap returns a flat map suitable for CSV export.
func (d *Document) ToFlatMap() map[string]string {
	flat := make(map[string]string, len(d.Fields)+6)
	for k, v := range d.ToMap() {
		switch val := v.(type) {
		case string:
			flat[k] = val
		case []byte:
			flat[k] = string(val)
		default:
			b, _ := json.Marshal(val)
			flat[k] = string(b)
		}
	}
	return flat
}

// Clone creates a shallow copy of the document with its own extras map.
func (d *Document) Clone() *Document {
	clone := *d
	clone.Fields = maps.Clone(d.Fields)
	if clone.Fields == nil {
		clone.Fields = make(map[string]any)
	}
	return &clone
}
