package storage

import (
	"context"

	"github.com/poiesic/facetflow/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close releases resources held by the repository.
	Close() error
}

// DocumentRepository provides operations for managing indexed documents.
type DocumentRepository interface {
	Repository
	// PutDocuments inserts or replaces documents in index.
	// Creates the index on first write and keeps its document count current.
	// Returns the stored documents.
	PutDocuments(ctx context.Context, index string, docs ...*core.Document) ([]*core.Document, error)

	// DeleteDocuments removes documents from index by ID.
	// Returns ErrNotFound if any document doesn't exist.
	DeleteDocuments(ctx context.Context, index string, ids ...string) error

	// GetDocument retrieves a single document.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, index, id string) (*core.Document, error)

	// GetDocuments retrieves multiple documents by ID.
	// Returns only the documents that exist (no error for missing documents).
	GetDocuments(ctx context.Context, index string, ids ...string) ([]*core.Document, error)

	// ScanDocuments calls fn for every document in index, ordered by ID.
	// Returns ErrIndexNotFound if the index was never written.
	// Iteration stops at the first error returned by fn.
	ScanDocuments(ctx context.Context, index string, fn func(doc *core.Document) error) error

	// ClearIndex removes every document in index and the index itself.
	ClearIndex(ctx context.Context, index string) error
}

// IndexRepository provides read access to index descriptions.
type IndexRepository interface {
	// GetIndexInfo returns the description of index.
	// Returns ErrIndexNotFound if the index doesn't exist.
	GetIndexInfo(ctx context.Context, index string) (*core.IndexInfo, error)

	// ListIndices returns all known indices ordered by name.
	ListIndices(ctx context.Context) ([]*core.IndexInfo, error)
}
