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


package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/storage"
)

const (
	// DefaultHitsPerPage is used when parameters leave HitsPerPage unset.
	DefaultHitsPerPage = 20

	// DefaultCacheSize is the number of responses kept by default.
	DefaultCacheSize = 256
)

// Searcher executes queries locally against a document repository.
type Searcher struct {
	documents   storage.DocumentRepository
	pool        *ants.Pool
	cache       *resultCache
	monitor     QueryMonitor
	hitsPerPage int
	logger      *slog.Logger
	closed      atomic.Bool
}

var _ Client = (*Searcher)(nil)

// Option configures a Searcher.
type Option func(*Searcher) error

// WithPoolSize sets the number of queries of a batch executed concurrently.
// Default is runtime.NumCPU(), with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		if size < 1 {
			size = 1
		}
		if s.pool != nil {
			s.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithCacheSize sets how many responses are cached. Zero disables caching.
func WithCacheSize(size int) Option {
	return func(s *Searcher) error {
		if size < 0 {
			size = 0
		}
		s.cache = newResultCache(size)
		return nil
	}
}

// WithHitsPerPage sets the page size used when parameters leave it unset.
func WithHitsPerPage(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			return fmt.Errorf("hits per page must be positive, got %d", n)
		}
		s.hitsPerPage = n
		return nil
	}
}

// WithMonitor sets a query monitor.
func WithMonitor(monitor QueryMonitor) Option {
	return func(s *Searcher) error {
		if monitor == nil {
			monitor = &noopMonitor{}
		}
		s.monitor = monitor
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a Searcher reading from documents.
func NewSearcher(documents storage.DocumentRepository, opts ...Option) (*Searcher, error) {
	if documents == nil {
		return nil, ErrRepositoryRequired
	}

	poolSize := runtime.NumCPU()
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		documents:   documents,
		pool:        pool,
		cache:       newResultCache(DefaultCacheSize),
		monitor:     &noopMonitor{},
		hitsPerPage: DefaultHitsPerPage,
		logger:      slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}

	return s, nil
}

// Release stops the worker pool. The searcher should not be used afterwards.
func (s *Searcher) Release() {
	s.closed.Store(true)
	if s.pool != nil {
		s.pool.Release()
	}
}

// ClearCache drops every cached response.
func (s *Searcher) ClearCache() error {
	if s.closed.Load() {
		return ErrClientClosed
	}
	s.cache.clear()
	return nil
}

// Search runs requests concurrently and returns their results in request order.
// Cached responses are returned as the same pointer that was cached.
func (s *Searcher) Search(ctx context.Context, requests []core.SearchParameters) ([]*core.SearchResults, error) {
	if s.closed.Load() {
		return nil, ErrClientClosed
	}
	for _, p := range requests {
		if err := core.ValidateSearchParameters(p); err != nil {
			return nil, err
		}
	}

	results := make([]*core.SearchResults, len(requests))
	errs := make([]error, len(requests))
	var wg sync.WaitGroup

	for i, p := range requests {
		key := p.Fingerprint()
		if cached, ok := s.cache.get(key); ok {
			s.monitor.CacheHit(p)
			results[i] = cached
			continue
		}

		wg.Add(1)
		submitErr := s.pool.Submit(func() {
			defer wg.Done()
			r, err := s.execute(ctx, p)
			if err != nil {
				errs[i] = err
				return
			}
			s.cache.put(key, r)
			results[i] = r
		})
		if submitErr != nil {
			wg.Done()
			errs[i] = fmt.Errorf("failed to submit query for %s: %w", p.Index, submitErr)
		}
	}

	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	s.logger.Debug("batch executed", "queries", len(requests))
	return results, nil
}

// facetAccumulator gathers counts and numeric statistics for one facet.
type facetAccumulator struct {
	counts   map[string]int
	n        int
	min, max float64
	sum      float64
}

func newFacetAccumulator() *facetAccumulator {
	return &facetAccumulator{counts: make(map[string]int)}
}

func (a *facetAccumulator) add(doc *core.Document, attribute string) {
	for _, v := range facetValuesOf(doc, attribute) {
		a.counts[v]++
	}
	if num, ok := doc.Numbers[attribute]; ok {
		if a.n == 0 || num < a.min {
			a.min = num
		}
		if a.n == 0 || num > a.max {
			a.max = num
		}
		a.sum += num
		a.n++
	}
}

func (a *facetAccumulator) stats() (core.FacetStats, bool) {
	if a.n == 0 {
		return core.FacetStats{}, false
	}
	return core.FacetStats{Min: a.min, Max: a.max, Avg: a.sum / float64(a.n), Sum: a.sum}, true
}

func (s *Searcher) execute(ctx context.Context, p core.SearchParameters) (*core.SearchResults, error) {
	start := time.Now()
	s.monitor.Start(p)

	tokens := tokenizeQuery(p.Query)

	accumulators := make(map[string]*facetAccumulator)
	for _, attr := range p.Facets {
		accumulators[attr] = newFacetAccumulator()
	}
	for _, attr := range p.DisjunctiveFacets {
		accumulators[attr] = newFacetAccumulator()
	}

	var matched []*core.Document
	scanned := 0

	err := s.documents.ScanDocuments(ctx, p.Index, func(doc *core.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		scanned++

		if !matchesAllTokens(documentWords(doc), tokens) {
			return nil
		}
		if !matchesConjunctive(doc, p.FacetRefinements) {
			return nil
		}

		failing := failingAttributes(doc, p)
		switch len(failing) {
		case 0:
			matched = append(matched, doc)
			for attr, acc := range accumulators {
				acc.add(doc, attr)
			}
		case 1:
			// A disjunctive facet counts documents that only miss its own refinements.
			if acc, ok := accumulators[failing[0]]; ok && p.IsDisjunctiveFacet(failing[0]) {
				acc.add(doc, failing[0])
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search index %s: %w", p.Index, err)
	}
	s.monitor.AfterScan(scanned, len(matched))

	hitsPerPage := p.HitsPerPage
	if hitsPerPage <= 0 {
		hitsPerPage = s.hitsPerPage
	}

	results := &core.SearchResults{
		Index:       p.Index,
		Query:       p.Query,
		Params:      p,
		NbHits:      len(matched),
		Page:        p.Page,
		NbPages:     (len(matched) + hitsPerPage - 1) / hitsPerPage,
		HitsPerPage: hitsPerPage,
		Hits:        []core.Hit{},
	}

	from := p.Page * hitsPerPage
	if from < len(matched) {
		to := min(from+hitsPerPage, len(matched))
		for _, doc := range matched[from:to] {
			results.Hits = append(results.Hits, newHit(doc, tokens, p))
		}
	}

	for attr, acc := range accumulators {
		if len(acc.counts) > 0 {
			if results.Facets == nil {
				results.Facets = make(map[string]map[string]int)
			}
			results.Facets[attr] = acc.counts
		}
		if stats, ok := acc.stats(); ok {
			if results.FacetStats == nil {
				results.FacetStats = make(map[string]core.FacetStats)
			}
			results.FacetStats[attr] = stats
		}
	}

	results.ProcessingTime = time.Since(start)
	s.monitor.Finish(results)
	return results, nil
}

// SearchForFacetValues lists values of facet among documents matching params,
// ignoring the refinements params holds on facet itself.
func (s *Searcher) SearchForFacetValues(ctx context.Context, params core.SearchParameters, facet, query string, maxFacetHits int) ([]core.FacetHit, error) {
	if s.closed.Load() {
		return nil, ErrClientClosed
	}
	if err := core.ValidateSearchParameters(params); err != nil {
		return nil, err
	}
	if !containsString(params.Facets, facet) && !params.IsDisjunctiveFacet(facet) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFacet, facet)
	}
	if maxFacetHits < 1 {
		maxFacetHits = 1
	}

	relaxed := params.ClearRefinements(facet)
	tokens := tokenizeQuery(relaxed.Query)
	prefix := strings.ToLower(strings.TrimSpace(query))
	counts := make(map[string]int)

	err := s.documents.ScanDocuments(ctx, relaxed.Index, func(doc *core.Document) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !matchesAllTokens(documentWords(doc), tokens) {
			return nil
		}
		if !matchesConjunctive(doc, relaxed.FacetRefinements) || len(failingAttributes(doc, relaxed)) > 0 {
			return nil
		}
		for _, v := range facetValuesOf(doc, facet) {
			if prefix == "" || matchesAllTokens(tokenizeText(v), []string{prefix}) {
				counts[v]++
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search facet values of %s in %s: %w", facet, params.Index, err)
	}

	hits := make([]core.FacetHit, 0, len(counts))
	for value, count := range counts {
		hits = append(hits, core.FacetHit{Value: value, Count: count})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Count != hits[j].Count {
			return hits[i].Count > hits[j].Count
		}
		return hits[i].Value < hits[j].Value
	})
	if len(hits) > maxFacetHits {
		hits = hits[:maxFacetHits]
	}

	var prefixTokens []string
	if prefix != "" {
		prefixTokens = []string{prefix}
	}
	for i := range hits {
		hits[i].Highlighted = highlight(hits[i].Value, prefixTokens, params.HighlightPreTag, params.HighlightPostTag)
	}

	return hits, nil
}

func newHit(doc *core.Document, tokens []string, p core.SearchParameters) core.Hit {
	hit := core.Hit{
		ObjectID:   doc.ID,
		Fields:     doc.Fields,
		Facets:     doc.Facets,
		Numbers:    doc.Numbers,
		Highlights: make(map[string]string, len(doc.Fields)),
	}
	for name, value := range doc.Fields {
		hit.Highlights[name] = highlight(value, tokens, p.HighlightPreTag, p.HighlightPostTag)
	}
	return hit
}

// documentWords returns the words of every searchable field of doc.
func documentWords(doc *core.Document) []string {
	var words []string
	for _, value := range doc.Fields {
		words = append(words, tokenizeText(value)...)
	}
	return words
}

// facetValuesOf returns the facet values doc carries for attribute.
// Numeric attributes facet on their formatted value.
func facetValuesOf(doc *core.Document, attribute string) []string {
	if values, ok := doc.Facets[attribute]; ok {
		return values
	}
	if num, ok := doc.Numbers[attribute]; ok {
		return []string{strconv.FormatFloat(num, 'f', -1, 64)}
	}
	return nil
}

func matchesConjunctive(doc *core.Document, refinements []core.FacetRefinement) bool {
	for _, r := range refinements {
		if !containsString(facetValuesOf(doc, r.Attribute), r.Value) {
			return false
		}
	}
	return true
}

// failingAttributes returns the attributes whose disjunctive or numeric
// refinements doc does not satisfy, in first-seen order.
func failingAttributes(doc *core.Document, p core.SearchParameters) []string {
	var failing []string
	fail := func(attr string) {
		if !containsString(failing, attr) {
			failing = append(failing, attr)
		}
	}

	disjunctive := make(map[string]bool)
	var attrs []string
	for _, r := range p.DisjunctiveFacetRefinements {
		if _, seen := disjunctive[r.Attribute]; !seen {
			disjunctive[r.Attribute] = false
			attrs = append(attrs, r.Attribute)
		}
		if containsString(facetValuesOf(doc, r.Attribute), r.Value) {
			disjunctive[r.Attribute] = true
		}
	}
	for _, attr := range attrs {
		if !disjunctive[attr] {
			fail(attr)
		}
	}

	for _, r := range p.NumericRefinements {
		num, ok := doc.Numbers[r.Attribute]
		if !ok || !r.Operator.Compare(num, r.Value) {
			fail(r.Attribute)
		}
	}

	return failing
}

func containsString(values []string, s string) bool {
	for _, v := range values {
		if v == s {
			return true
		}
	}
	return false
}
