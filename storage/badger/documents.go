package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) *DocumentRepository {
	return &DocumentRepository{
		backend: backend,
	}
}

// Close is a no-op; the backend owns the database handle.
func (r *DocumentRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *DocumentRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// PutDocuments inserts or replaces documents in index.
func (r *DocumentRepository) PutDocuments(ctx context.Context, index string, docs ...*core.Document) ([]*core.Document, error) {
	if err := core.ValidateIndexName(index); err != nil {
		return nil, err
	}
	for _, doc := range docs {
		if err := core.ValidateDocument(doc); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readIndexInfo(tx, index)
		if err != nil {
			return err
		}
		if info == nil {
			info = &core.IndexInfo{Name: index}
		}

		for _, doc := range docs {
			key := makeDocumentKey(index, doc.ID)

			// Count only documents that are new to the index
			_, err := tx.Get(key)
			switch {
			case errors.Is(err, badger.ErrKeyNotFound):
				info.Documents++
			case err != nil:
				return err
			}

			if err := tx.Set(key, storage.MarshalDocument(doc)); err != nil {
				return err
			}
		}

		info.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeIndexInfoKey(index), storage.MarshalIndexInfo(info)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}

	return docs, nil
}

// DeleteDocuments removes documents from index by ID.
func (r *DocumentRepository) DeleteDocuments(ctx context.Context, index string, ids ...string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readIndexInfo(tx, index)
		if err != nil {
			return err
		}
		if info == nil {
			return storage.ErrIndexNotFound
		}

		for _, id := range ids {
			key := makeDocumentKey(index, id)
			if _, err := tx.Get(key); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return storage.ErrNotFound
				}
				return err
			}
			if err := tx.Delete(key); err != nil {
				return err
			}
			info.Documents--
		}

		info.UpdatedAt = time.Now().UTC()
		if err := tx.Set(makeIndexInfoKey(index), storage.MarshalIndexInfo(info)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a single document.
func (r *DocumentRepository) GetDocument(ctx context.Context, index, id string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(index, id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetDocuments retrieves multiple documents by ID.
func (r *DocumentRepository) GetDocuments(ctx context.Context, index string, ids ...string) ([]*core.Document, error) {
	results := make([]*core.Document, 0, len(ids))
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			doc, err := readDocument(tx, makeDocumentKey(index, id))
			if err != nil {
				return err
			}
			if doc != nil {
				results = append(results, doc)
			}
		}
		return nil
	}, false)
	return results, err
}

// ScanDocuments calls fn for every document in index, ordered by ID.
func (r *DocumentRepository) ScanDocuments(ctx context.Context, index string, fn func(doc *core.Document) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		info, err := readIndexInfo(tx, index)
		if err != nil {
			return err
		}
		if info == nil {
			return storage.ErrIndexNotFound
		}

		return scanPrefix(ctx, tx, makeDocumentPrefix(index), func(_, val []byte) error {
			doc, err := storage.UnmarshalDocument(val)
			if err != nil {
				return err
			}
			return fn(doc)
		})
	}, false)
}

// ClearIndex removes every document in index and the index itself.
func (r *DocumentRepository) ClearIndex(ctx context.Context, index string) error {
	var keys [][]byte
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		return scanPrefix(ctx, tx, makeDocumentPrefix(index), func(key, _ []byte) error {
			keys = append(keys, key)
			return nil
		})
	}, false)
	if err != nil {
		return err
	}

	// A write batch avoids ErrTxnTooBig on large indices
	wb := r.backend.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range keys {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	if err := wb.Delete(makeIndexInfoKey(index)); err != nil {
		return err
	}
	return wb.Flush()
}

// readDocument reads a document, returning nil, nil when the key is absent.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}
