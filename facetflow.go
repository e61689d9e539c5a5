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


package facetflow

import (
	"errors"
	"log/slog"

	"github.com/poiesic/facetflow/coordinator"
	"github.com/poiesic/facetflow/ingestion"
	"github.com/poiesic/facetflow/search"
	"github.com/poiesic/facetflow/storage"
	"github.com/poiesic/facetflow/storage/badger"
)

// Engine bundles the document store with a shared searcher. Coordinators and
// ingestion pipelines created from the same engine see the same data.
type Engine struct {
	backend   *badger.Backend
	documents storage.DocumentRepository
	indices   storage.IndexRepository
	searcher  *search.Searcher
	logger    *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*engineOptions)

type engineOptions struct {
	inMemory      bool
	searchOptions []search.Option
	logger        *slog.Logger
}

// InMemory keeps all data in memory. The path passed to Open is ignored.
func InMemory() EngineOption {
	return func(o *engineOptions) {
		o.inMemory = true
	}
}

// WithSearchOptions passes options through to the shared searcher.
func WithSearchOptions(opts ...search.Option) EngineOption {
	return func(o *engineOptions) {
		o.searchOptions = append(o.searchOptions, opts...)
	}
}

// WithLogger sets the logger used by the engine and its searcher.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(o *engineOptions) {
		o.logger = logger
	}
}

// Open opens (or creates) the database at path.
func Open(path string, opts ...EngineOption) (*Engine, error) {
	options := &engineOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}
	if options.inMemory {
		path = ""
	}

	backend, err := badger.OpenBackend(path, options.inMemory, badger.WithBackendLogger(options.logger))
	if err != nil {
		return nil, err
	}

	documents := badger.NewDocumentRepository(backend)
	searchOpts := append([]search.Option{search.WithLogger(options.logger)}, options.searchOptions...)
	searcher, err := search.NewSearcher(documents, searchOpts...)
	if err != nil {
		documents.Close()
		backend.Close()
		return nil, err
	}

	return &Engine{
		backend:   backend,
		documents: documents,
		indices:   badger.NewIndexRepository(backend),
		searcher:  searcher,
		logger:    options.logger,
	}, nil
}

// Close releases the searcher and closes the underlying storage.
func (e *Engine) Close() error {
	e.searcher.Release()

	var errs []error
	if err := e.documents.Close(); err != nil {
		e.logger.Error("error closing document repository", "err", err)
		errs = append(errs, err)
	}
	if err := e.backend.Close(); err != nil {
		e.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (e *Engine) Documents() storage.DocumentRepository {
	return e.documents
}

func (e *Engine) Indices() storage.IndexRepository {
	return e.indices
}

// Searcher returns the shared search client.
func (e *Engine) Searcher() *search.Searcher {
	return e.searcher
}

// NewCoordinator starts a coordinator searching index through the shared searcher.
// The caller owns the coordinator and must Stop it.
func (e *Engine) NewCoordinator(index string, opts ...coordinator.Option) (*coordinator.Coordinator, error) {
	opts = append([]coordinator.Option{coordinator.WithLogger(e.logger)}, opts...)
	return coordinator.New(index, e.searcher, opts...)
}

// NewIngestionPipeline returns a pipeline writing into the engine's document store.
// The caller must Release it.
func (e *Engine) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	opts = append([]ingestion.Option{ingestion.WithLogger(e.logger)}, opts...)
	return ingestion.NewPipeline(e.documents, opts...)
}
