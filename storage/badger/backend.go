package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/facetflow/storage"
)

// Backend wraps a BadgerDB instance and provides low-level operations.
type Backend struct {
	db *badger.DB
}

// BackendOption adjusts the BadgerDB options before the database is opened.
type BackendOption func(*badger.Options)

// WithBackendLogger routes BadgerDB's internal logging to logger.
// Default is slog.Default().
func WithBackendLogger(logger *slog.Logger) BackendOption {
	return func(opts *badger.Options) {
		if logger != nil {
			opts.Logger = slogAdapter{logger: logger}
		}
	}
}

// slogAdapter implements badger.Logger on top of slog. BadgerDB formats its
// messages printf-style with a trailing newline.
type slogAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = slogAdapter{}

func (a slogAdapter) logf(level slog.Level, format string, args ...any) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, level) {
		return
	}
	a.logger.Log(ctx, level, strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (a slogAdapter) Errorf(format string, args ...any)   { a.logf(slog.LevelError, format, args...) }
func (a slogAdapter) Warningf(format string, args ...any) { a.logf(slog.LevelWarn, format, args...) }
func (a slogAdapter) Infof(format string, args ...any)    { a.logf(slog.LevelInfo, format, args...) }
func (a slogAdapter) Debugf(format string, args ...any)   { a.logf(slog.LevelDebug, format, args...) }

// OpenBackend opens the database in directory filePath, creating it when
// missing. With inMemory set nothing touches disk and filePath is ignored.
func OpenBackend(filePath string, inMemory bool, backendOpts ...BackendOption) (*Backend, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	if !inMemory {
		if err := os.MkdirAll(filePath, 0755); err != nil {
			return nil, fmt.Errorf("failed to prepare database directory: %w", err)
		}
		opts = badger.DefaultOptions(filePath)
	}
	opts.Logger = slogAdapter{logger: slog.Default()}
	opts.Compression = options.None
	for _, apply := range backendOpts {
		apply(&opts)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
// Write conflicts are reported as storage.ErrTransactionFailed.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return storage.ErrStorageClosed
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	err := fn(tx)
	if errors.Is(err, badger.ErrConflict) {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return err
}

// WithTransaction executes a function within a transaction.
// Implements storage.Repository.
func (b *Backend) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return b.WithTx(func(tx *badger.Txn) error {
		// Execute the callback function
		if err := fn(ctx); err != nil {
			return err
		}
		// Commit the transaction
		return tx.Commit()
	}, true)
}

// scanPrefix calls fn with the value of every key under prefix, in key order.
func scanPrefix(ctx context.Context, tx *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := iter.Item()
		key := item.KeyCopy(nil)
		err := item.Value(func(val []byte) error {
			return fn(key, val)
		})
		if err != nil {
			return err
		}
	}
	return nil
}
