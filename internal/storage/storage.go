// Package storage persists assembled documents.
package storage

import (
	"fmt"
	"log/slog"

	"github.com/IshaanNene/hallcrawl/internal/config"
	"github.com/IshaanNene/hallcrawl/internal/types"
)

// Storage is the interface for all storage backends.
type Storage interface {
	// Store persists a batch of documents.
	Store(docs []*types.Document) error

	// Close flushes pending writes and releases resources.
	Close() error

	// Name returns the storage backend identifier.
	Name() string
}

// New opens the backend selected by cfg.Type.
func New(cfg config.StorageConfig, logger *slog.Logger) (Storage, error) {
	switch cfg.Type {
	case "mongodb":
		return NewMongoStorage(cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, logger)
	case "json", "jsonl", "csv":
		return NewFileStorage(cfg.Type, cfg.OutputPath, logger)
	default:
		return nil, &types.StorageError{Backend: cfg.Type, Err: types.ErrUnsupportedStore}
	}
}

// Batcher groups documents into fixed-size batches before storing them.
// A Batcher is used by a single goroutine.
type Batcher struct {
	backend Storage
	size    int
	buf     []*types.Document
	stored  int
}

// NewBatcher creates a Batcher writing batches of size to backend.
func NewBatcher(backend Storage, size int) *Batcher {
	if size < 1 {
		size = 1
	}
	return &Batcher{backend: backend, size: size, buf: make([]*types.Document, 0, size)}
}

// Add buffers doc and stores the batch once it is full.
func (b *Batcher) Add(doc *types.Document) error {
	b.buf = append(b.buf, doc)
	if len(b.buf) >= b.size {
		return b.Flush()
	}
	return nil
}

// Flush stores any buffered documents.
func (b *Batcher) Flush() error {
	if len(b.buf) == 0 {
		return nil
	}
	if err := b.backend.Store(b.buf); err != nil {
		return fmt.Errorf("store batch of %d: %w", len(b.buf), err)
	}
	b.stored += len(b.buf)
	b.buf = b.buf[:0]
	return nil
}

// Stored returns the number of documents stored so far.
func (b *Batcher) Stored() int {
	return b.stored
}
