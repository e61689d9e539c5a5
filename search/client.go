package search

import (
	"context"

	"github.com/poiesic/facetflow/core"
)

// Client executes composed queries against a search backend.
// Implementations must be safe for concurrent use.
type Client interface {
	// Search runs a batch of queries in one round trip. The returned slice is
	// aligned with requests. A failure of any query fails the whole batch.
	Search(ctx context.Context, requests []core.SearchParameters) ([]*core.SearchResults, error)

	// SearchForFacetValues returns up to maxFacetHits values of facet among
	// documents matching params whose text matches query.
	SearchForFacetValues(ctx context.Context, params core.SearchParameters, facet, query string, maxFacetHits int) ([]core.FacetHit, error)

	// ClearCache drops any cached responses.
	ClearCache() error
}
