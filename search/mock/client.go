package mock

import (
	"context"
	"sync"

	"github.com/poiesic/facetflow/core"
	"github.com/poiesic/facetflow/search"
)

// FacetSearchCall records one SearchForFacetValues invocation.
type FacetSearchCall struct {
	Params       core.SearchParameters
	Facet        string
	Query        string
	MaxFacetHits int
}

// MockClient is a test double for search.Client.
// It is safe for concurrent use.
type MockClient struct {
	// SearchFunc is called by Search if set.
	SearchFunc func(ctx context.Context, requests []core.SearchParameters) ([]*core.SearchResults, error)

	// SearchForFacetValuesFunc is called by SearchForFacetValues if set.
	SearchForFacetValuesFunc func(ctx context.Context, params core.SearchParameters, facet, query string, maxFacetHits int) ([]core.FacetHit, error)

	mu            sync.Mutex
	searchCalls   [][]core.SearchParameters
	facetCalls    []FacetSearchCall
	clearCacheCnt int
}

var _ search.Client = (*MockClient)(nil)

// NewMockClient creates a mock client with default behavior.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// WithSearchFunc sets SearchFunc and returns the client.
func (m *MockClient) WithSearchFunc(fn func(ctx context.Context, requests []core.SearchParameters) ([]*core.SearchResults, error)) *MockClient {
	m.SearchFunc = fn
	return m
}

// WithSearchForFacetValuesFunc sets SearchForFacetValuesFunc and returns the client.
func (m *MockClient) WithSearchForFacetValuesFunc(fn func(ctx context.Context, params core.SearchParameters, facet, query string, maxFacetHits int) ([]core.FacetHit, error)) *MockClient {
	m.SearchForFacetValuesFunc = fn
	return m
}

// Search records the batch and answers it.
func (m *MockClient) Search(ctx context.Context, requests []core.SearchParameters) ([]*core.SearchResults, error) {
	m.mu.Lock()
	m.searchCalls = append(m.searchCalls, append([]core.SearchParameters(nil), requests...))
	fn := m.SearchFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, requests)
	}
	return Echo(requests), nil
}

// SearchForFacetValues records the call and answers it.
func (m *MockClient) SearchForFacetValues(ctx context.Context, params core.SearchParameters, facet, query string, maxFacetHits int) ([]core.FacetHit, error) {
	m.mu.Lock()
	m.facetCalls = append(m.facetCalls, FacetSearchCall{Params: params, Facet: facet, Query: query, MaxFacetHits: maxFacetHits})
	fn := m.SearchForFacetValuesFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, params, facet, query, maxFacetHits)
	}
	return []core.FacetHit{}, nil
}

// ClearCache counts the call.
func (m *MockClient) ClearCache() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clearCacheCnt++
	return nil
}

// SearchCalls returns a copy of every batch passed to Search.
func (m *MockClient) SearchCalls() [][]core.SearchParameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]core.SearchParameters(nil), m.searchCalls...)
}

// SearchCallCount returns the number of Search calls.
func (m *MockClient) SearchCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.searchCalls)
}

// FacetSearchCalls returns a copy of every SearchForFacetValues call.
func (m *MockClient) FacetSearchCalls() []FacetSearchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]FacetSearchCall(nil), m.facetCalls...)
}

// ClearCacheCount returns the number of ClearCache calls.
func (m *MockClient) ClearCacheCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.clearCacheCnt
}

// Echo builds one empty result per request, carrying the request's index,
// query and parameters.
func Echo(requests []core.SearchParameters) []*core.SearchResults {
	results := make([]*core.SearchResults, len(requests))
	for i, p := range requests {
		results[i] = &core.SearchResults{
			Index:       p.Index,
			Query:       p.Query,
			Params:      p,
			Hits:        []core.Hit{},
			Page:        p.Page,
			HitsPerPage: p.HitsPerPage,
		}
	}
	return results
}
