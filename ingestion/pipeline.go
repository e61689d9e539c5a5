// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package ingestion

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/storage"
)

const (
	// DefaultBatchSize is the number of documents written per transaction.
	DefaultBatchSize = 500

	defaultMaxAttempts = 5
	defaultBaseDelay   = 20 * time.Millisecond
)

// Pipeline writes documents into an index.
type Pipeline struct {
	documents   storage.DocumentRepository
	pool        *ants.Pool
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	progress    io.Writer
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the number of batches written concurrently.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if p.pool != nil {
			p.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of documents per transaction.
// Default is DefaultBatchSize.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			return fmt.Errorf("batch size must be positive, got %d", size)
		}
		p.batchSize = size
		return nil
	}
}

// WithRetry sets how often a conflicting batch is retried and the delay
// before the first retry.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.maxAttempts = maxAttempts
		p.baseDelay = baseDelay
		return nil
	}
}

// WithProgress reports write progress to w.
func WithProgress(w io.Writer) Option {
	return func(p *Pipeline) error {
		p.progress = w
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(documents storage.DocumentRepository, opts ...Option) (*Pipeline, error) {
	if documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}

	// Default pool size
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}

	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		documents:   documents,
		pool:        pool,
		batchSize:   DefaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		logger:      slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestResult summarizes one Ingest call.
type IngestResult struct {
	Documents int
	Batches   int
	Elapsed   time.Duration
}

// Ingest validates docs and writes them into index. Documents without an ID
// get one derived from their content. Nothing is written when any document
// is invalid. Batches are written concurrently; the first failing batch
// error is returned once every batch has finished.
func (p *Pipeline) Ingest(ctx context.Context, index string, docs []*core.Document) (IngestResult, error) {
	start := time.Now()
	if err := core.ValidateIndexName(index); err != nil {
		return IngestResult{}, err
	}

	for i, doc := range docs {
		if doc != nil && doc.ID == "" {
			doc.ID = core.IDFromContent(doc)
		}
		if err := core.ValidateDocument(doc); err != nil {
			return IngestResult{}, fmt.Errorf("document %d: %w", i, err)
		}
	}

	batches := chunk(docs, p.batchSize)
	result := IngestResult{Documents: len(docs), Batches: len(batches)}
	if len(batches) == 0 {
		return result, nil
	}

	var tracker *ProgressTracker
	if p.progress != nil {
		tracker = NewProgressTracker(p.progress, index, len(docs), p.batchSize)
		tracker.Start()
		defer tracker.Finish()
	}

	errs := make([]error, len(batches))
	var wg sync.WaitGroup
	for i, batch := range batches {
		wg.Add(1)
		submitErr := p.pool.Submit(func() {
			defer wg.Done()
			errs[i] = p.writeBatch(ctx, index, batch)
			if errs[i] == nil && tracker != nil {
				tracker.Increment(len(batch))
			}
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to submit batch %d: %w", i, submitErr)
		}
	}
	wg.Wait()

	result.Elapsed = time.Since(start)
	if err := errors.Join(errs...); err != nil {
		return result, err
	}

	p.logger.Info("documents ingested", "index", index, "documents", len(docs),
		"batches", len(batches), "elapsed", result.Elapsed)
	return result, nil
}

func (p *Pipeline) writeBatch(ctx context.Context, index string, batch []*core.Document) error {
	attempt := 0
	return RetryWithBackoff(ctx, func() error {
		attempt++
		_, err := p.documents.PutDocuments(ctx, index, batch...)
		if err != nil && isConflict(err) {
			p.logger.Warn("batch conflicted", "index", index, "size", len(batch), "attempt", attempt)
		}
		return err
	}, p.maxAttempts, p.baseDelay, isConflict)
}

// chunk splits docs into consecutive slices of at most size documents.
func chunk(docs []*core.Document, size int) [][]*core.Document {
	var out [][]*core.Document
	for start := 0; start < len(docs); start += size {
		end := min(start+size, len(docs))
		out = append(out, docs[start:end])
	}
	return out
}

// Release releases resources including the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
